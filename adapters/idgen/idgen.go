// Package idgen implements ports.IDGenerator. Items get a UUID on
// create; tests swap in the sequential generator so ids are stable in
// assertions.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/shelf-cms/shelf/ports"
)

// UUID generates random v4 UUIDs.
type UUID struct{}

func (UUID) New() string { return uuid.New().String() }

// Sequential generates "prefix1", "prefix2", ... Safe for concurrent
// use.
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential returns a generator counting up from prefix1.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Reset rewinds the counter to the start.
func (s *Sequential) Reset() {
	atomic.StoreUint64(&s.counter, 0)
}

var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
