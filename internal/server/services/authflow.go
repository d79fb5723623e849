package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/logging"
	"github.com/dmitrijs2005/meetauth/internal/server/auth"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/users"
)

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.PublicUser
}

// AuthFlow turns credentials into a session token and session tokens back
// into principals.
type AuthFlow struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	issuer      *auth.Issuer
	logger      logging.Logger
	now         func() time.Time
}

func NewAuthFlow(db *sql.DB, m repomanager.RepositoryManager, h *auth.Hasher, i *auth.Issuer, l logging.Logger) *AuthFlow {
	return &AuthFlow{
		db:          db,
		repomanager: m,
		hasher:      h,
		issuer:      i,
		logger:      l.With("module", "authflow"),
		now:         time.Now,
	}
}

// Login verifies email and password and mints a session token.
//
// Unknown email and wrong password both yield common.ErrInvalidCredentials.
// A correct password on an inactive or banned account yields
// common.ErrAccountDisabled. A stored digest that is not a bcrypt hash is a
// data-integrity problem and surfaces as common.ErrMalformedHash.
func (f *AuthFlow) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = common.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", common.ErrValidation)
	}

	repo := f.repomanager.Users(f.db)

	u, err := repo.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			f.hasher.DummyVerify(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := f.hasher.Verify(password, u.PasswordHash)
	if err != nil {
		f.logger.Error(ctx, "stored password hash is malformed", "user_id", u.ID, "error", err)
		return nil, err
	}
	if !ok {
		return nil, common.ErrInvalidCredentials
	}

	if !u.CanAuthenticate() {
		return nil, common.ErrAccountDisabled
	}

	if f.hasher.NeedsRehash(u.PasswordHash) {
		f.rehash(ctx, repo, u, password)
	}

	now := f.now().UTC()
	if err := repo.TouchLastLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLogin = &now

	pub := u.Public()
	token, exp, err := f.issuer.Issue(pub)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	f.logger.Info(ctx, "user logged in", "user_id", u.ID)
	return &LoginResult{Token: token, ExpiresAt: exp, User: pub}, nil
}

// rehash upgrades a digest made with another cost. Failures are logged and
// do not fail the login.
func (f *AuthFlow) rehash(ctx context.Context, repo users.Repository, u *models.User, password string) {
	newHash, err := f.hasher.Hash(password)
	if err != nil {
		f.logger.Warn(ctx, "password rehash failed", "user_id", u.ID, "error", err)
		return
	}
	swapped, err := repo.ReplacePasswordHash(ctx, u.ID, u.PasswordHash, newHash)
	if err != nil {
		f.logger.Warn(ctx, "password rehash not saved", "user_id", u.ID, "error", err)
		return
	}
	if swapped {
		u.PasswordHash = newHash
		f.logger.Info(ctx, "password rehashed", "user_id", u.ID, "cost", f.hasher.Cost())
	}
}

// Authorize validates token and checks that the account still exists and may
// authenticate. Admin status is taken from the token as it was at issuance.
func (f *AuthFlow) Authorize(ctx context.Context, token string) (*auth.Principal, error) {
	p, err := f.issuer.Validate(token)
	if err != nil {
		return nil, err
	}

	u, err := f.repomanager.Users(f.db).GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", common.ErrTokenInvalid)
		}
		return nil, err
	}
	if !u.CanAuthenticate() {
		return nil, fmt.Errorf("%w: account disabled", common.ErrTokenInvalid)
	}

	return p, nil
}
