// Package hasher implements ports.Hasher for secret field values.
//
// Password-kind fields never hold plaintext at rest: the engine hashes
// on write and compares on sign-in, both through this package.
package hasher

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/shelf-cms/shelf/ports"
)

// Bcrypt hashes with bcrypt at a fixed cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt hasher. Costs outside bcrypt's valid
// range (including zero) fall back to the bcrypt default.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash returns a salted bcrypt hash of plaintext. Two calls with the
// same input produce different hashes.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

// Compare reports whether plaintext is the value hash was derived
// from.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) == nil
}

// Fake keeps the plaintext as the "hash". It makes credential tests
// readable; never wire it into a real build.
type Fake struct{}

func (Fake) Hash(plaintext string) ([]byte, error) { return []byte(plaintext), nil }

func (Fake) Compare(hash []byte, plaintext string) bool { return string(hash) == plaintext }

var (
	_ ports.Hasher = (*Bcrypt)(nil)
	_ ports.Hasher = Fake{}
)
