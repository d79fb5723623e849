package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/meetauth/internal/dbx"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/users"
)

// MemoryRepositoryManager hands out one shared in-memory store regardless of
// the handle it is given. Migrations are a no-op.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}
