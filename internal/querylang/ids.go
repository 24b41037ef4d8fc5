package querylang

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out process-unique token ids. Two calls never return the
// same id, however close together they happen.
type IDGenerator interface {
	NextID() string
}

// Counter is a deterministic IDGenerator: prefix followed by 1, 2, 3...
type Counter struct {
	prefix string
	n      atomic.Uint64
}

// NewCounter creates a Counter. An empty prefix defaults to "tok-".
func NewCounter(prefix string) *Counter {
	if prefix == "" {
		prefix = "tok-"
	}
	return &Counter{prefix: prefix}
}

// NextID returns the next id.
func (c *Counter) NextID() string {
	return c.prefix + strconv.FormatUint(c.n.Add(1), 10)
}

// UUIDs generates time-ordered UUIDv7 ids.
type UUIDs struct{}

// NextID returns a new UUIDv7 string.
func (UUIDs) NextID() string {
	return uuid.Must(uuid.NewV7()).String()
}
