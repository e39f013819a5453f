package tools

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/server/envelope"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/services"
	"github.com/shopspring/decimal"
)

// money renders an amount as a JSON number with two decimals.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

type recordView struct {
	RecordID      string      `json:"record_id"`
	Kind          string      `json:"kind"`
	OccurredOn    string      `json:"occurred_on"`
	Amount        json.Number `json:"amount"`
	Category      string      `json:"category"`
	Tags          string      `json:"tags"`
	Notes         string      `json:"notes"`
	PaymentMethod string      `json:"payment_method"`
	Status        string      `json:"status"`
	Frequency     string      `json:"frequency"`
	CreatedAt     string      `json:"created_at"`
	UpdatedAt     string      `json:"updated_at"`
}

func viewRecords(rs []*models.Record) []recordView {
	out := make([]recordView, 0, len(rs))
	for _, r := range rs {
		out = append(out, recordView{
			RecordID:      r.ID,
			Kind:          r.Kind,
			OccurredOn:    r.OccurredOn.Format(common.DateLayout),
			Amount:        money(r.Amount),
			Category:      r.Category,
			Tags:          r.Tags,
			Notes:         r.Notes,
			PaymentMethod: r.PaymentMethod,
			Status:        r.Status,
			Frequency:     r.Frequency,
			CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:     r.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func bulkFields(res *services.BulkResult) envelope.Fields {
	return envelope.Fields{
		"success_count": res.SuccessCount,
		"failed_count":  res.FailedCount,
		"errors":        res.Errors,
	}
}
