package validation

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"ann@example.com", true},
		{"a.b+tag@sub.example.io", true},
		{"", false},
		{"not-an-email", false},
		{"@example.com", false},
		{"Ann <ann@example.com>", false},
		{strings.Repeat("a", 250) + "@x.io", false},
	}

	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		if tt.ok {
			assert.NoError(t, err, tt.email)
		} else {
			assert.ErrorIs(t, err, common.ErrValidation, tt.email)
		}
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Ann"))
	assert.ErrorIs(t, ValidateName(""), common.ErrValidation)
	assert.ErrorIs(t, ValidateName("   "), common.ErrValidation)
	assert.ErrorIs(t, ValidateName(strings.Repeat("n", 101)), common.ErrValidation)
}
