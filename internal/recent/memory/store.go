// Package memory provides an in-memory recent.Store.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"querybar/internal/recent"
)

type entry struct {
	value string
	at    time.Time
}

// Store is an in-memory recent.Store.
// Entries are not persisted across restarts.
type Store struct {
	mu      sync.RWMutex
	entries []entry // newest first
}

var _ recent.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Record stores value as used at at.
func (s *Store) Record(ctx context.Context, value string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = slices.DeleteFunc(s.entries, func(e entry) bool { return e.value == value })
	s.entries = append(s.entries, entry{value: value, at: at})
	slices.SortStableFunc(s.entries, func(a, b entry) int {
		if c := b.at.Compare(a.at); c != 0 {
			return c
		}
		return strings.Compare(a.value, b.value)
	})
	if len(s.entries) > recent.MaxEntries {
		s.entries = s.entries[:recent.MaxEntries]
	}
	return nil
}

// List returns up to limit values, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]string, n)
	for i := range n {
		out[i] = s.entries[i].value
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
