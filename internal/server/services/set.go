package services

import (
	"database/sql"

	"github.com/dmitrijs2005/meetauth/internal/logging"
	"github.com/dmitrijs2005/meetauth/internal/server/auth"
	"github.com/dmitrijs2005/meetauth/internal/server/config"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/repomanager"
)

// Set is every service bound to one storage handle.
type Set struct {
	Store  *CredentialStore
	Roles  *RoleManager
	Ledger *CreditLedger
	Flow   *AuthFlow
	Reset  *PasswordReset
}

// NewSet builds the hasher and session issuer from cfg and wires the
// services to db through m.
func NewSet(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *Set {
	h := auth.NewHasher(cfg.BcryptCost)
	i := auth.NewIssuer([]byte(cfg.SecretKey), cfg.SessionTTL)

	return &Set{
		Store:  NewCredentialStore(db, m, h, cfg, l),
		Roles:  NewRoleManager(db, m, l),
		Ledger: NewCreditLedger(db, m, l),
		Flow:   NewAuthFlow(db, m, h, i, l),
		Reset:  NewPasswordReset(db, m, h, cfg.ResetTokenTTL, l),
	}
}
