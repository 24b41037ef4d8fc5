// Package notify broadcasts "something changed" to any number of waiters.
// The editor session uses it to wake readers after timer-driven events.
package notify

import (
	"context"
	"sync"
)

// Signal wakes every waiter on each Notify. Waiters take C() before they
// look at the state they care about, then block on the channel.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewSignal returns a ready Signal.
func NewSignal() *Signal { return &Signal{ch: make(chan struct{})} }

// Notify closes the current channel and arms a new one.
func (s *Signal) Notify() {
	s.mu.Lock()
	close(s.ch)
	s.ch = make(chan struct{})
	s.mu.Unlock()
}

// C returns the channel the next Notify closes.
func (s *Signal) C() <-chan struct{} {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()
	return ch
}

// Wait blocks until the next Notify or until ctx is done.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
