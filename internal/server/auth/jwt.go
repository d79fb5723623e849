// Package auth contains the credential primitives: bcrypt password hashing
// and signed, time-bounded session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims binds the user id (sub) and the admin flag as they were at issuance.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"adm"`
}

// Principal is what a valid session token proves.
type Principal struct {
	UserID    string
	IsAdmin   bool
	ExpiresAt time.Time
}

// Issuer mints and validates HS256 session tokens. Tokens are stateless:
// nothing is stored, so nothing can be revoked before expiry.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer takes the process-wide signing key from the caller.
func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	return &Issuer{key: key, ttl: ttl, now: time.Now}
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue returns a signed token for u and its expiry.
func (i *Issuer) Issue(u *models.PublicUser) (string, time.Time, error) {
	if len(i.key) == 0 {
		return "", time.Time{}, errors.New("session signing key is empty")
	}
	if u == nil || u.ID == "" {
		return "", time.Time{}, fmt.Errorf("%w: user id is required", common.ErrValidation)
	}

	now := i.now()
	exp := now.Add(i.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		IsAdmin: u.IsAdmin,
	})

	s, err := token.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}

	return s, exp.Truncate(jwt.TimePrecision), nil
}

// Validate checks signature, algorithm and expiry. Every failure is
// ErrTokenInvalid; a token is invalid at its expiry instant.
func (i *Issuer) Validate(tokenString string) (*Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrTokenInvalid
	}

	return &Principal{
		UserID:    claims.Subject,
		IsAdmin:   claims.IsAdmin,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
