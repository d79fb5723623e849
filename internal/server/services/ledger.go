package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/logging"
	"github.com/dmitrijs2005/meetauth/internal/server/models"
	"github.com/dmitrijs2005/meetauth/internal/server/repositories/repomanager"
)

// CreditLedger moves vision tokens. The balance never goes negative: a debit
// the balance cannot cover fails with common.ErrInsufficientBalance and
// changes nothing.
type CreditLedger struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewCreditLedger(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *CreditLedger {
	return &CreditLedger{db: db, repomanager: m, logger: l.With("module", "ledger")}
}

func positive(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", common.ErrValidation, amount)
	}
	return nil
}

// Credit adds amount and returns the new balance.
func (c *CreditLedger) Credit(ctx context.Context, id string, amount int64) (int64, error) {
	if err := positive(amount); err != nil {
		return 0, err
	}
	balance, err := c.repomanager.Users(c.db).AddTokens(ctx, id, amount)
	if err != nil {
		return 0, err
	}
	c.logger.Info(ctx, "vision tokens credited", "user_id", id, "amount", amount, "balance", balance)
	return balance, nil
}

// Debit subtracts amount if the balance covers it and returns the new balance.
func (c *CreditLedger) Debit(ctx context.Context, id string, amount int64) (int64, error) {
	if err := positive(amount); err != nil {
		return 0, err
	}
	balance, err := c.repomanager.Users(c.db).DebitTokens(ctx, id, amount)
	if err != nil {
		return 0, err
	}
	c.logger.Info(ctx, "vision tokens debited", "user_id", id, "amount", amount, "balance", balance)
	return balance, nil
}

// SetBalance overwrites the balance.
func (c *CreditLedger) SetBalance(ctx context.Context, id string, value int64) (*models.PublicUser, error) {
	if value < 0 {
		return nil, fmt.Errorf("%w: balance must not be negative, got %d", common.ErrValidation, value)
	}
	u, err := c.repomanager.Users(c.db).SetTokens(ctx, id, value)
	if err != nil {
		return nil, err
	}
	c.logger.Info(ctx, "vision tokens set", "user_id", id, "balance", value)
	return u, nil
}

func (c *CreditLedger) Balance(ctx context.Context, id string) (int64, error) {
	return c.repomanager.Users(c.db).GetTokens(ctx, id)
}
