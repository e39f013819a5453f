package records

import (
	"strings"
	"time"
)

// Filter narrows record queries. Nil fields are ignored; string fields are
// compared against the lower-cased stored values.
type Filter struct {
	Kind          *string
	Category      *string
	Tags          *string
	PaymentMethod *string
	Status        *string
	Frequency     *string
	From          *time.Time
	To            *time.Time
}

// where renders the conditions, always ending with the owner predicate.
func (f Filter) where(userID string) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, cond+placeholder(len(args)))
	}

	eq := []struct {
		col string
		v   *string
	}{
		{"kind", f.Kind},
		{"category", f.Category},
		{"tags", f.Tags},
		{"payment_method", f.PaymentMethod},
		{"status", f.Status},
		{"frequency", f.Frequency},
	}
	for _, c := range eq {
		if c.v != nil {
			add(c.col+" = ", normalize(*c.v))
		}
	}
	if f.From != nil {
		add("occurred_on >= ", *f.From)
	}
	if f.To != nil {
		add("occurred_on <= ", *f.To)
	}
	add("user_id = ", userID)

	return strings.Join(conds, " AND "), args
}
