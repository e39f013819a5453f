package records

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/shopspring/decimal"
)

// Field is a record column that callers are allowed to set.
type Field int

const (
	FieldAmount Field = iota
	FieldCategory
	FieldOccurredOn
	FieldTags
	FieldPaymentMethod
	FieldStatus
	FieldFrequency
	FieldNotes
	FieldKind
)

var fieldColumns = [...]string{
	FieldAmount:        "amount",
	FieldCategory:      "category",
	FieldOccurredOn:    "occurred_on",
	FieldTags:          "tags",
	FieldPaymentMethod: "payment_method",
	FieldStatus:        "status",
	FieldFrequency:     "frequency",
	FieldNotes:         "notes",
	FieldKind:          "kind",
}

// Column returns the SQL column name. It is the only source of identifiers
// that end up in statement text.
func (f Field) Column() string { return fieldColumns[f] }

func (f Field) String() string { return f.Column() }

// Patch carries caller-supplied values. Nil means "not supplied".
type Patch struct {
	Amount        *decimal.Decimal
	Category      *string
	OccurredOn    *string
	Tags          *string
	PaymentMethod *string
	Status        *string
	Frequency     *string
	Notes         *string
	Kind          *string
}

// Change binds one whitelisted field to its normalized value.
type Change struct {
	Field Field
	Value any
}

// Diff is the ordered list of changes built from a Patch.
type Diff []Change

// BuildDiff validates and normalizes the supplied fields of p in whitelist
// order. Categorical text is lower-cased, dates must be YYYY-MM-DD and
// amounts must stay positive once rounded to cents.
func BuildDiff(p Patch) (Diff, error) {
	var d Diff

	if p.Amount != nil {
		amount := p.Amount.Round(2)
		if !amount.IsPositive() {
			return nil, common.Validationf("amount must be greater than 0")
		}
		d = append(d, Change{FieldAmount, amount})
	}
	if p.Category != nil {
		d = append(d, Change{FieldCategory, normalize(*p.Category)})
	}
	if p.OccurredOn != nil {
		day, err := ParseDate(*p.OccurredOn)
		if err != nil {
			return nil, err
		}
		d = append(d, Change{FieldOccurredOn, day})
	}
	if p.Tags != nil {
		d = append(d, Change{FieldTags, normalize(*p.Tags)})
	}
	if p.PaymentMethod != nil {
		d = append(d, Change{FieldPaymentMethod, normalize(*p.PaymentMethod)})
	}
	if p.Status != nil {
		v, err := oneOf("status", *p.Status, models.Statuses)
		if err != nil {
			return nil, err
		}
		d = append(d, Change{FieldStatus, v})
	}
	if p.Frequency != nil {
		v, err := oneOf("frequency", *p.Frequency, models.Frequencies)
		if err != nil {
			return nil, err
		}
		d = append(d, Change{FieldFrequency, v})
	}
	if p.Notes != nil {
		d = append(d, Change{FieldNotes, normalize(*p.Notes)})
	}
	if p.Kind != nil {
		v, err := oneOf("kind", *p.Kind, models.Kinds)
		if err != nil {
			return nil, err
		}
		d = append(d, Change{FieldKind, v})
	}

	return d, nil
}

// Insert renders an INSERT for d with user_id as the leading column.
func (d Diff) Insert(userID string) (string, []any) {
	cols := make([]string, 0, len(d)+1)
	marks := make([]string, 0, len(d)+1)
	args := make([]any, 0, len(d)+1)

	cols = append(cols, "user_id")
	marks = append(marks, "$1")
	args = append(args, userID)

	for i, c := range d {
		cols = append(cols, c.Field.Column())
		marks = append(marks, placeholder(i+2))
		args = append(args, c.Value)
	}

	query := fmt.Sprintf(`INSERT INTO records (%s) VALUES (%s) RETURNING record_id`,
		strings.Join(cols, ", "), strings.Join(marks, ", "))

	return query, args
}

// Update renders an UPDATE for d scoped to (recordID, userID); both are
// bound after the SET values.
func (d Diff) Update(recordID, userID string) (string, []any, error) {
	if len(d) == 0 {
		return "", nil, common.ErrNoFieldsToUpdate
	}

	sets := make([]string, 0, len(d))
	args := make([]any, 0, len(d)+2)
	for i, c := range d {
		sets = append(sets, c.Field.Column()+" = "+placeholder(i+1))
		args = append(args, c.Value)
	}
	args = append(args, recordID, userID)

	query := fmt.Sprintf(`UPDATE records SET %s, updated_at = now() WHERE record_id = %s AND user_id = %s`,
		strings.Join(sets, ", "), placeholder(len(d)+1), placeholder(len(d)+2))

	return query, args, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(common.DateLayout, s)
	if err != nil {
		return time.Time{}, common.Validationf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func oneOf(name, v string, allowed []string) (string, error) {
	v = normalize(v)
	if !slices.Contains(allowed, v) {
		return "", common.Validationf("invalid %s, use: %s", name, strings.Join(allowed, ", "))
	}
	return v, nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
