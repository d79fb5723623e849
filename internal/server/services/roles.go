package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/meetauth/internal/logging"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/users"
)

// RoleManager changes the admin flag and account standing. Each change is a
// single column update; the two axes never affect each other.
type RoleManager struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewRoleManager(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *RoleManager {
	return &RoleManager{db: db, repomanager: m, logger: l.With("module", "roles")}
}

func (r *RoleManager) set(ctx context.Context, id string, flag users.Flag, value bool) (*models.PublicUser, error) {
	u, err := r.repomanager.Users(r.db).SetFlag(ctx, id, flag, value)
	if err != nil {
		return nil, err
	}
	r.logger.Info(ctx, "account flag changed", "user_id", id, "flag", string(flag), "value", value)
	return u, nil
}

func (r *RoleManager) SetActive(ctx context.Context, id string, active bool) (*models.PublicUser, error) {
	return r.set(ctx, id, users.FlagActive, active)
}

func (r *RoleManager) SetBanned(ctx context.Context, id string, banned bool) (*models.PublicUser, error) {
	return r.set(ctx, id, users.FlagBanned, banned)
}

// PromoteToAdmin is idempotent.
func (r *RoleManager) PromoteToAdmin(ctx context.Context, id string) (*models.PublicUser, error) {
	return r.set(ctx, id, users.FlagAdmin, true)
}

// DemoteFromAdmin is idempotent.
func (r *RoleManager) DemoteFromAdmin(ctx context.Context, id string) (*models.PublicUser, error) {
	return r.set(ctx, id, users.FlagAdmin, false)
}

// CanAuthenticate is the login gate shared by AuthFlow and the interceptor.
func (r *RoleManager) CanAuthenticate(u *models.PublicUser) bool {
	return u != nil && u.CanAuthenticate()
}

func (r *RoleManager) Standing(u *models.PublicUser) models.Standing {
	return u.Standing()
}
