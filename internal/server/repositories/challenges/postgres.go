package challenges

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/dbx"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Set replaces the challenge for (UserID, Purpose) and resets its attempts.
func (r *PostgresRepository) Set(ctx context.Context, c *models.Challenge) error {
	query :=
		`INSERT INTO one_time_codes (user_id, purpose, code, expires_at, attempts)
		 VALUES ($1, $2, $3, $4, 0)
		 ON CONFLICT (user_id, purpose)
		 DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, attempts = 0`

	_, err := r.db.ExecContext(ctx, query, c.UserID, string(c.Purpose), c.Code, c.ExpiresAt)
	if err != nil {
		if _, ok := dbx.UniqueViolation(err); ok {
			return ErrCodeCollision
		}
		return fmt.Errorf("db error: %w", err)
	}

	c.Attempts = 0
	return nil
}

// Clear removes code, expiry and attempts together.
func (r *PostgresRepository) Clear(ctx context.Context, userID string, purpose models.Purpose) error {
	query :=
		`DELETE FROM one_time_codes WHERE user_id = $1 AND purpose = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, string(purpose)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindByCode(ctx context.Context, purpose models.Purpose, code string) (*models.Challenge, error) {
	query :=
		`SELECT user_id, purpose, code, expires_at, attempts FROM one_time_codes
		 WHERE purpose = $1 AND code = $2`

	c := &models.Challenge{}
	var p string
	err := r.db.QueryRowContext(ctx, query, string(purpose), code).Scan(&c.UserID, &p, &c.Code, &c.ExpiresAt, &c.Attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Purpose = models.Purpose(p)

	return c, nil
}
