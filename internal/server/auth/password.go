package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor for new digests (~100–300ms per hash
// on commodity hardware). Raising it is an operational change: existing
// digests are upgraded on the next successful login.
const DefaultCost = 12

// maxPasswordBytes is bcrypt's input limit; longer input would be truncated.
const maxPasswordBytes = 72

// Hasher derives and verifies salted bcrypt digests. The digest embeds salt
// and cost, so verification needs nothing else.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher using cost, or DefaultCost when cost is 0.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Cost() int { return h.cost }

// Hash returns a fresh digest of plaintext with a new random salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: password is required", common.ErrValidation)
	}
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("%w: password must not exceed %d bytes", common.ErrValidation, maxPasswordBytes)
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify compares plaintext with digest in constant time. A mismatch is
// (false, nil); a digest that cannot be parsed is ErrMalformedHash.
func (h *Hasher) Verify(plaintext, digest string) (bool, error) {
	if _, err := bcrypt.Cost([]byte(digest)); err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrMalformedHash, err)
	}
	if len(plaintext) > maxPasswordBytes {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", common.ErrMalformedHash, err)
	}
}

// NeedsRehash reports whether digest was produced with a different cost.
func (h *Hasher) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false
	}
	return cost != h.cost
}

// DummyVerify spends the same time as a real verification. Login calls it
// when the email is unknown so the response time does not reveal that.
func (h *Hasher) DummyVerify(plaintext string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword(common.GenerateRandByteArray(16), h.cost)
	})
	if len(plaintext) > maxPasswordBytes {
		plaintext = plaintext[:maxPasswordBytes]
	}
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}

// ValidDigest reports whether digest parses as a bcrypt hash.
func ValidDigest(digest string) bool {
	_, err := bcrypt.Cost([]byte(digest))
	return err == nil
}
