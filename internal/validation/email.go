// Package validation checks user-supplied account fields before they reach
// storage. Every error wraps common.ErrValidation.
package validation

import (
	"fmt"
	"net/mail"

	"github.com/dmitrijs2005/meetauth/internal/common"
)

const maxEmailLength = 254

// ValidateEmail validates format and length of an already normalized address.
// Display-name forms such as "Ann <ann@example.com>" are rejected.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email address is required", common.ErrValidation)
	}

	if len(email) > maxEmailLength {
		return fmt.Errorf("%w: email address is too long (max %d characters)", common.ErrValidation, maxEmailLength)
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address format", common.ErrValidation)
	}

	return nil
}
