package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/cryptox"
	"github.com/dmitrijs2005/meetauth/internal/dbx"
	"github.com/dmitrijs2005/meetauth/internal/logging"
	"github.com/dmitrijs2005/meetauth/internal/server/auth"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/repomanager"
)

// resetTokenBytes is the entropy of a reset token before hex encoding.
const resetTokenBytes = 32

// PasswordReset issues single-use reset tokens and replaces passwords. Only
// the SHA-256 digest of a token is stored.
type PasswordReset struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.Hasher
	ttl         time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewPasswordReset(db *sql.DB, m repomanager.RepositoryManager, h *auth.Hasher, ttl time.Duration, l logging.Logger) *PasswordReset {
	return &PasswordReset{
		db:          db,
		repomanager: m,
		hasher:      h,
		ttl:         ttl,
		logger:      l.With("module", "reset"),
		now:         time.Now,
	}
}

// Request starts a reset for email and returns the plaintext token. A newer
// request replaces any pending one. Unknown emails yield common.ErrNotFound.
func (r *PasswordReset) Request(ctx context.Context, email string) (string, error) {
	token, err := common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	expires := r.now().UTC().Add(r.ttl)

	var userID string
	err = inTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := r.repomanager.Users(tx)
		u, err := repo.GetByEmail(ctx, common.NormalizeEmail(email))
		if err != nil {
			return err
		}
		userID = u.ID
		return repo.SetResetToken(ctx, u.ID, cryptox.TokenDigest(token), expires)
	})
	if err != nil {
		return "", err
	}

	r.logger.Info(ctx, "password reset requested", "user_id", userID, "expires", expires)
	return token, nil
}

// Complete sets newPassword for the account holding token, provided the token
// has not expired, and clears the reset pair in the same update. Anything
// else is common.ErrTokenInvalid.
func (r *PasswordReset) Complete(ctx context.Context, token, newPassword string) (*models.PublicUser, error) {
	if token == "" {
		return nil, common.ErrTokenInvalid
	}

	hash, err := r.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	u, err := r.repomanager.Users(r.db).ConsumeResetToken(ctx, cryptox.TokenDigest(token), hash, r.now().UTC())
	if err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "password reset completed", "user_id", u.ID)
	return u, nil
}

// ChangePassword replaces the password of id directly and cancels any
// pending reset.
func (r *PasswordReset) ChangePassword(ctx context.Context, id, newPassword string) (*models.PublicUser, error) {
	hash, err := r.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	u, err := r.repomanager.Users(r.db).SetPasswordHash(ctx, id, hash)
	if err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "password changed", "user_id", id)
	return u, nil
}
