// Package api holds the wire contract shared by the meetauth gRPC server and
// its clients: service and method names, request and response messages, and
// the JSON codec that carries them.
package api

import (
	"time"

	"github.com/dmitrijs2005/meetauth/internal/server/models"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      *models.PublicUser `json:"user"`
}

type WhoAmIRequest struct{}

type WhoAmIResponse struct {
	User      *models.PublicUser `json:"user"`
	IsAdmin   bool               `json:"is_admin"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// SpendRequest debits the caller's own vision tokens.
type SpendRequest struct {
	Amount int64 `json:"amount"`
}

type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int64  `json:"balance"`
}

// UserRequest selects a user by id or, when the id is empty, by email.
type UserRequest struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

type UserResponse struct {
	User *models.PublicUser `json:"user"`
}

type FlagRequest struct {
	UserID string `json:"user_id"`
	Value  bool   `json:"value"`
}

type AmountRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}
