// Package challenges stores one-time codes, one live row per
// (user, purpose).
package challenges

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/ledgerd/internal/server/models"
)

// ErrCodeCollision is returned by Set when another live challenge of the
// same purpose already uses the code.
var ErrCodeCollision = errors.New("code collision")

type Repository interface {
	Set(ctx context.Context, c *models.Challenge) error
	Clear(ctx context.Context, userID string, purpose models.Purpose) error
	FindByCode(ctx context.Context, purpose models.Purpose, code string) (*models.Challenge, error)
}
