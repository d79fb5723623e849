package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/meetauth/internal/dbx"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a handle (a pool or a
// transaction) and owns schema migrations for its backend.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
