// Package models defines the server-side records persisted in the database
// and the projections handed out to callers.
package models

import "time"

// User is the full account record, credential included. Only the credential
// read path returns it; everything else works with PublicUser.
type User struct {
	ID                   string     `db:"id"`
	Name                 string     `db:"name"`
	Email                string     `db:"email"`
	PasswordHash         string     `db:"password_hash"`
	IsActive             bool       `db:"is_active"`
	IsBanned             bool       `db:"is_banned"`
	IsAdmin              bool       `db:"is_admin"`
	VisionTokens         int64      `db:"vision_tokens"`
	LastLogin            *time.Time `db:"last_login"`
	ResetPasswordToken   *string    `db:"reset_password_token"`
	ResetPasswordExpires *time.Time `db:"reset_password_expires"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

// PublicUser is the public-safe projection: no password hash, no reset pair.
type PublicUser struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	IsBanned     bool       `db:"is_banned" json:"is_banned"`
	IsAdmin      bool       `db:"is_admin" json:"is_admin"`
	VisionTokens int64      `db:"vision_tokens" json:"vision_tokens"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Public strips the sensitive fields.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		IsActive:     u.IsActive,
		IsBanned:     u.IsBanned,
		IsAdmin:      u.IsAdmin,
		VisionTokens: u.VisionTokens,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// HasPendingReset reports whether a reset is in flight at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetPasswordToken != nil && u.ResetPasswordExpires != nil && now.Before(*u.ResetPasswordExpires)
}

// Draft carries what provisioning needs. Password is plaintext and is hashed
// before anything is stored.
type Draft struct {
	Name     string
	Email    string
	Password string
	IsAdmin  bool
}

// Standing classifies an account for reporting. Banned dominates inactive.
type Standing string

const (
	StandingActive   Standing = "active"
	StandingInactive Standing = "inactive"
	StandingBanned   Standing = "banned"
)

// CanAuthenticate is the single login gate: active and not banned.
func (u *PublicUser) CanAuthenticate() bool {
	return u.IsActive && !u.IsBanned
}

func (u *PublicUser) Standing() Standing {
	switch {
	case u.IsBanned:
		return StandingBanned
	case !u.IsActive:
		return StandingInactive
	default:
		return StandingActive
	}
}

func (u *User) CanAuthenticate() bool {
	return u.IsActive && !u.IsBanned
}
