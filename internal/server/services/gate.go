package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/dbx"
	"github.com/dmitrijs2005/ledgerd/internal/server/auth"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repomanager"
)

// Principal is the caller an operation runs for. Conn is the connection the
// gate acquired; the operation must issue its statements on it.
type Principal struct {
	User *models.User
	Conn dbx.DBTX
}

// Op is a business operation that runs after the gate admitted the caller.
type Op func(ctx context.Context, p *Principal) error

// Guarded is an Op behind the gate. It takes the raw bearer token.
type Guarded func(ctx context.Context, token string) error

// Gate authenticates callers and loads them from the store before any
// protected operation runs.
type Gate struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
}

func NewGate(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService) *Gate {
	return &Gate{db: db, repomanager: m, tokens: tokens}
}

// Wrap admits only authenticated callers whose email is verified.
func (g *Gate) Wrap(op Op) Guarded {
	return g.guard(true, op)
}

// Authenticated admits any authenticated caller, verified or not.
func (g *Gate) Authenticated(op Op) Guarded {
	return g.guard(false, op)
}

func (g *Gate) guard(requireVerified bool, op Op) Guarded {
	return func(ctx context.Context, token string) error {
		// проверка подписи локальная, соединение берём только после неё
		claims, err := g.tokens.Verify(token)
		if err != nil {
			return err
		}

		return dbx.WithConn(ctx, g.db, func(ctx context.Context, conn dbx.DBTX) error {
			user, err := g.repomanager.Users(conn).FindByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return common.ErrUserNotFound
				}
				return err
			}

			if requireVerified && !user.EmailVerified {
				return common.ErrEmailNotVerified
			}

			return op(ctx, &Principal{User: user, Conn: conn})
		})
	}
}
