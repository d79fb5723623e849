package services

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/logging"
	"github.com/dmitrijs2005/meetauth/internal/server/auth"
	"github.com/dmitrijs2005/meetauth/internal/server/config"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/meetauth/internal/validation"
	"github.com/google/uuid"
)

// CredentialStore provisions and reads user accounts. Only
// FindByEmailWithCredential returns the password hash.
type CredentialStore struct {
	db                  *sql.DB
	repomanager         repomanager.RepositoryManager
	hasher              *auth.Hasher
	defaultVisionTokens int64
	logger              logging.Logger
	now                 func() time.Time
}

// NewCredentialStore constructs a CredentialStore using repositories and server config.
func NewCredentialStore(db *sql.DB, m repomanager.RepositoryManager, h *auth.Hasher, cfg *config.Config, l logging.Logger) *CredentialStore {
	return &CredentialStore{
		db:                  db,
		repomanager:         m,
		hasher:              h,
		defaultVisionTokens: cfg.DefaultVisionTokens,
		logger:              l.With("module", "credentials"),
		now:                 time.Now,
	}
}

func (s *CredentialStore) users() users.Repository {
	return s.repomanager.Users(s.db)
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.PublicUser, error) {
	return s.users().GetByEmail(ctx, common.NormalizeEmail(email))
}

// FindByEmailWithCredential returns the full record, hash included. It exists
// for verification flows only.
func (s *CredentialStore) FindByEmailWithCredential(ctx context.Context, email string) (*models.User, error) {
	return s.users().GetCredentialByEmail(ctx, common.NormalizeEmail(email))
}

func (s *CredentialStore) FindByID(ctx context.Context, id string) (*models.PublicUser, error) {
	return s.users().GetByID(ctx, id)
}

// Create validates d, hashes its password and stores a new active account
// with the default vision token balance.
func (s *CredentialStore) Create(ctx context.Context, d models.Draft) (*models.PublicUser, error) {
	name := strings.TrimSpace(d.Name)
	email := common.NormalizeEmail(d.Email)

	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(d.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      d.IsAdmin,
		VisionTokens: s.defaultVisionTokens,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users().Create(ctx, u)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user created", "user_id", created.ID, "admin", created.IsAdmin)
	return created.Public(), nil
}

// Save writes u back in one statement and refreshes UpdatedAt. The vision
// token balance is not written; use CreditLedger for that.
func (s *CredentialStore) Save(ctx context.Context, u *models.User) (*models.PublicUser, error) {
	if u == nil || u.ID == "" {
		return nil, fmt.Errorf("%w: user id is required", common.ErrValidation)
	}

	u.Name = strings.TrimSpace(u.Name)
	u.Email = common.NormalizeEmail(u.Email)
	if err := validation.ValidateName(u.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(u.Email); err != nil {
		return nil, err
	}
	if !auth.ValidDigest(u.PasswordHash) {
		return nil, fmt.Errorf("%w: password hash is not a bcrypt digest", common.ErrValidation)
	}
	if (u.ResetPasswordToken == nil) != (u.ResetPasswordExpires == nil) {
		return nil, fmt.Errorf("%w: reset token and expiry must be set together", common.ErrValidation)
	}
	now := s.now().UTC()
	if u.ResetPasswordExpires != nil && !u.ResetPasswordExpires.After(now) {
		return nil, fmt.Errorf("%w: reset token expiry must be in the future", common.ErrValidation)
	}

	u.UpdatedAt = now
	return s.users().Save(ctx, u)
}

// List streams the public projection of matching users. The sequence can be
// ranged over more than once; every pass queries the store again.
func (s *CredentialStore) List(ctx context.Context, f models.ListFilter, sort models.Sort) iter.Seq2[*models.PublicUser, error] {
	return s.users().List(ctx, f, sort)
}
