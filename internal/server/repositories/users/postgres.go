// Package users persists accounts in PostgreSQL.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/dbx"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
)

const userColumns = `id, username, email, password_hash, full_name, email_verified, active, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
}

// Insert stores a new user. A unique violation on username or email is
// reported as the matching conflict error.
func (r *PostgresRepository) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, username, email, password_hash, full_name)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING email_verified, active, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.UserName, user.Email, user.PasswordHash, user.FullName).
		Scan(&user.EmailVerified, &user.Active, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if constraint, ok := dbx.UniqueViolation(err); ok {
			if constraint == "users_email_key" {
				return nil, common.ErrEmailTaken
			}
			return nil, common.ErrUsernameTaken
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) SetPasswordHash(ctx context.Context, userID, hash string) error {
	query :=
		`UPDATE users SET password_hash = $1, updated_at = now()
		 WHERE id = $2`

	return r.execOne(ctx, query, hash, userID)
}

// MarkEmailVerified sets the flag and drops the verification code in one
// statement.
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, userID string) error {
	query :=
		`WITH cleared AS (
		     DELETE FROM one_time_codes WHERE user_id = $1 AND purpose = 'verify_email'
		 )
		 UPDATE users SET email_verified = TRUE, updated_at = now()
		 WHERE id = $1`

	return r.execOne(ctx, query, userID)
}

// SetPasswordAndClearReset stores the new hash and drops the reset code in
// one statement.
func (r *PostgresRepository) SetPasswordAndClearReset(ctx context.Context, userID, hash string) error {
	query :=
		`WITH cleared AS (
		     DELETE FROM one_time_codes WHERE user_id = $2 AND purpose = 'reset_password'
		 )
		 UPDATE users SET password_hash = $1, updated_at = now()
		 WHERE id = $2`

	return r.execOne(ctx, query, hash, userID)
}

func (r *PostgresRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.UserName, &user.Email, &user.PasswordHash,
		&user.FullName, &user.EmailVerified, &user.Active, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
