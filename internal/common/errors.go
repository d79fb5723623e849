// Package common defines shared constants, helpers and sentinel errors used
// across the meetauth server and operator tooling. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Input errors.
	ErrValidation = errors.New("validation error")

	// Repository-level errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")

	// Authentication errors. Unknown email and wrong password are the same
	// error on purpose.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")

	// Ledger errors.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Session token errors (expired, malformed or badly signed).
	ErrTokenInvalid = errors.New("invalid token")

	// Data-integrity errors: a stored digest that is not a password hash.
	ErrMalformedHash = errors.New("malformed password hash")
)
