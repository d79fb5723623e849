// Package services contains the server-side business logic of the credential
// core: account provisioning and lookup (CredentialStore), standing and admin
// flags (RoleManager), the vision token balance (CreditLedger), login and
// token authorization (AuthFlow) and password resets (PasswordReset).
//
// Services receive an explicit database handle and a RepositoryManager; the
// caller owns the handle's lifecycle.
package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/meetauth/internal/dbx"
)

// inTx runs fn inside a transaction on db. Without a database (the in-memory
// backend) fn runs directly and gets a nil handle.
func inTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, db, nil, fn)
}
