package validation

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/meetauth/internal/common"
)

const maxNameLength = 100

// ValidateName validates a display name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return fmt.Errorf("%w: name is required", common.ErrValidation)
	}

	if len(trimmed) > maxNameLength {
		return fmt.Errorf("%w: name is too long (max %d characters)", common.ErrValidation, maxNameLength)
	}

	return nil
}
