// Package cryptox holds hashing helpers for secrets that are stored only as
// digests, such as password reset tokens.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenDigest returns the hex SHA-256 digest of token.
func TokenDigest(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
