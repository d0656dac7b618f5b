// Package ports defines the interfaces between layers.
// Implementations live in adapters/.
package ports

import "time"

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Hasher hashes and verifies secret field values.
type Hasher interface {
	// Hash generates a one-way hash from plaintext.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// IDGenerator generates unique item identifiers.
type IDGenerator interface {
	New() string
}
