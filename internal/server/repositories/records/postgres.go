package records

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ledgerd/internal/dbx"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/shopspring/decimal"
)

const recordColumns = `record_id, user_id, amount, category, occurred_on, tags, payment_method, status, frequency, notes, kind, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, userID string, d Diff) (string, error) {
	query, args := d.Insert(userID)

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, recordID, userID string) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM records WHERE record_id = $1 AND user_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, recordID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return ok, nil
}

func (r *PostgresRepository) Update(ctx context.Context, recordID, userID string, d Diff) error {
	query, args, err := d.Update(recordID, userID)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, recordID, userID string) error {
	query :=
		`DELETE FROM records WHERE record_id = $1 AND user_id = $2`

	if _, err := r.db.ExecContext(ctx, query, recordID, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, f Filter) ([]*models.Record, error) {
	where, args := f.where(userID)
	query := `SELECT ` + recordColumns + ` FROM records WHERE ` + where +
		` ORDER BY occurred_on DESC, created_at DESC`

	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) Top(ctx context.Context, userID, kind string, limit int) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records
		 WHERE kind = $1 AND user_id = $2
		 ORDER BY amount DESC
		 LIMIT $3`

	return r.query(ctx, query, kind, userID, limit)
}

// SumCompleted totals completed records of one kind; no rows sum to zero.
func (r *PostgresRepository) SumCompleted(ctx context.Context, userID, kind string) (decimal.Decimal, error) {
	query :=
		`SELECT SUM(amount) FROM records
		 WHERE kind = $1 AND status = 'completed' AND user_id = $2`

	var sum decimal.NullDecimal
	if err := r.db.QueryRowContext(ctx, query, kind, userID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("db error: %w", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}

	return sum.Decimal, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec := &models.Record{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Amount, &rec.Category, &rec.OccurredOn, &rec.Tags,
			&rec.PaymentMethod, &rec.Status, &rec.Frequency, &rec.Notes, &rec.Kind, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}
