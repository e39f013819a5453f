package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/records"
	"github.com/shopspring/decimal"
)

// Args are the raw tool arguments as decoded from JSON or a protobuf Struct.
type Args map[string]any

// Decode fills dst, a pointer to an args struct with json tags.
func (a Args) Decode(dst any) error {
	b, err := json.Marshal(map[string]any(a))
	if err != nil {
		return common.Validationf("invalid arguments")
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(dst); err != nil {
		return common.Validationf("invalid arguments: %s", describe(err))
	}
	return nil
}

func describe(err error) string {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		return te.Field + " has the wrong type"
	}
	return err.Error()
}

// required fails with the names of empty arguments, given as name/value
// pairs.
func required(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return common.Validationf("missing required arguments: %s", strings.Join(missing, ", "))
	}
	return nil
}

// number accepts a JSON number or a numeric string.
type number int

func (n *number) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != float64(int(v)) {
		return fmt.Errorf("%q is not a whole number", s)
	}
	*n = number(v)
	return nil
}

// recordArgs carries the writable record fields shared by the record tools.
type recordArgs struct {
	RecordID      string           `json:"record_id"`
	Amount        *decimal.Decimal `json:"amount"`
	Category      *string          `json:"category"`
	OccurredOn    *string          `json:"occurred_on"`
	Tags          *string          `json:"tags"`
	PaymentMethod *string          `json:"payment_method"`
	Status        *string          `json:"status"`
	Frequency     *string          `json:"frequency"`
	Notes         *string          `json:"notes"`
	Kind          *string          `json:"kind"`
}

func (a recordArgs) patch() records.Patch {
	return records.Patch{
		Amount:        a.Amount,
		Category:      a.Category,
		OccurredOn:    a.OccurredOn,
		Tags:          a.Tags,
		PaymentMethod: a.PaymentMethod,
		Status:        a.Status,
		Frequency:     a.Frequency,
		Notes:         a.Notes,
		Kind:          a.Kind,
	}
}

// filterArgs are the optional report filters.
type filterArgs struct {
	Kind          *string `json:"kind"`
	Category      *string `json:"category"`
	Tags          *string `json:"tags"`
	PaymentMethod *string `json:"payment_method"`
	Status        *string `json:"status"`
	Frequency     *string `json:"frequency"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
}

func (a filterArgs) filter() (records.Filter, error) {
	f := records.Filter{
		Kind:          a.Kind,
		Category:      a.Category,
		Tags:          a.Tags,
		PaymentMethod: a.PaymentMethod,
		Status:        a.Status,
		Frequency:     a.Frequency,
	}

	var err error
	if f.From, err = optionalDate(a.StartDate); err != nil {
		return f, err
	}
	if f.To, err = optionalDate(a.EndDate); err != nil {
		return f, err
	}
	return f, nil
}

func optionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := records.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
