package users

import (
	"context"

	"github.com/dmitrijs2005/ledgerd/internal/server/models"
)

// Repository is the user half of the credential store. Lookups return
// common.ErrorNotFound when no row matches.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) (*models.User, error)
	SetPasswordHash(ctx context.Context, userID, hash string) error
	MarkEmailVerified(ctx context.Context, userID string) error
	SetPasswordAndClearReset(ctx context.Context, userID, hash string) error
}
