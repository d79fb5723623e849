// Package users declares the persistence contract for user accounts and
// provides a PostgreSQL backend and an in-memory backend.
//
// Every mutation is a single statement (or a single critical section in
// memory), so concurrent writers to one record are serialized by the backend.
package users

import (
	"context"
	"iter"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/server/models"
)

// Flag names one of the boolean account columns.
type Flag string

const (
	FlagActive Flag = "is_active"
	FlagBanned Flag = "is_banned"
	FlagAdmin  Flag = "is_admin"
)

func (f Flag) valid() bool {
	return f == FlagActive || f == FlagBanned || f == FlagAdmin
}

// Repository is the storage contract. Public reads never carry the password
// hash or the reset pair; GetCredentialByEmail is the one read that does.
type Repository interface {
	// Create inserts u. A taken email yields common.ErrDuplicateEmail.
	Create(ctx context.Context, u *models.User) (*models.User, error)

	GetByID(ctx context.Context, id string) (*models.PublicUser, error)
	GetByEmail(ctx context.Context, email string) (*models.PublicUser, error)
	GetCredentialByEmail(ctx context.Context, email string) (*models.User, error)

	// Save writes every mutable column except vision_tokens, which only the
	// ledger operations touch, and refreshes updated_at.
	Save(ctx context.Context, u *models.User) (*models.PublicUser, error)

	// List streams matching users. Each iteration re-runs the query.
	List(ctx context.Context, f models.ListFilter, s models.Sort) iter.Seq2[*models.PublicUser, error]

	SetFlag(ctx context.Context, id string, flag Flag, value bool) (*models.PublicUser, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// AddTokens credits delta and returns the new balance.
	AddTokens(ctx context.Context, id string, delta int64) (int64, error)
	// DebitTokens subtracts amount only if the balance covers it, in one
	// conditional update. Otherwise common.ErrInsufficientBalance.
	DebitTokens(ctx context.Context, id string, amount int64) (int64, error)
	SetTokens(ctx context.Context, id string, value int64) (*models.PublicUser, error)
	GetTokens(ctx context.Context, id string) (int64, error)

	// SetPasswordHash replaces the hash and clears any reset pair.
	SetPasswordHash(ctx context.Context, id string, hash string) (*models.PublicUser, error)
	// ReplacePasswordHash swaps oldHash for newHash only if oldHash is still
	// current. It reports whether the swap happened.
	ReplacePasswordHash(ctx context.Context, id string, oldHash, newHash string) (bool, error)

	SetResetToken(ctx context.Context, id string, digest string, expires time.Time) error
	// ConsumeResetToken sets newHash and clears the pair when digest matches
	// an unexpired reset. Otherwise common.ErrTokenInvalid.
	ConsumeResetToken(ctx context.Context, digest string, newHash string, now time.Time) (*models.PublicUser, error)
}
