package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/ledgerd/internal/dbx"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/records"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DB handle, usually the
// single connection an operation runs on.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Challenges(db dbx.DBTX) challenges.Repository
	Records(db dbx.DBTX) records.Repository
}
