// Package records stores ledger records. Every statement is scoped to the
// owning user.
package records

import (
	"context"

	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Insert(ctx context.Context, userID string, d Diff) (string, error)
	Exists(ctx context.Context, recordID, userID string) (bool, error)
	Update(ctx context.Context, recordID, userID string, d Diff) error
	Delete(ctx context.Context, recordID, userID string) error
	List(ctx context.Context, userID string, f Filter) ([]*models.Record, error)
	Top(ctx context.Context, userID, kind string, limit int) ([]*models.Record, error)
	SumCompleted(ctx context.Context, userID, kind string) (decimal.Decimal, error)
}
