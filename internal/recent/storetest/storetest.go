// Package storetest provides a shared conformance test suite for
// recent.Store implementations. Each backend (memory, sqlite) wires this
// suite to verify it satisfies the Store contract.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"querybar/internal/recent"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// TestStore runs the conformance suite. newStore must return a fresh, empty
// store for each sub-test.
func TestStore(t *testing.T, newStore func(t *testing.T) recent.Store) {
	t.Run("ListEmpty", func(t *testing.T) {
		s := newStore(t)
		got, err := s.List(context.Background(), 10)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected empty list, got %v", got)
		}
	})

	t.Run("NewestFirst", func(t *testing.T) {
		s := newStore(t)
		record(t, s, ">5min", epoch)
		record(t, s, "<30s", epoch.Add(time.Second))
		record(t, s, "<2h", epoch.Add(2*time.Second))

		expectList(t, s, 0, []string{"<2h", "<30s", ">5min"})
	})

	t.Run("RecordMovesToFront", func(t *testing.T) {
		s := newStore(t)
		record(t, s, ">5min", epoch)
		record(t, s, "<30s", epoch.Add(time.Second))
		record(t, s, ">5min", epoch.Add(2*time.Second))

		expectList(t, s, 0, []string{">5min", "<30s"})
	})

	t.Run("Limit", func(t *testing.T) {
		s := newStore(t)
		for i := range 4 {
			record(t, s, fmt.Sprintf("<%dmin", i+1), epoch.Add(time.Duration(i)*time.Second))
		}
		expectList(t, s, 2, []string{"<4min", "<3min"})
	})

	t.Run("Eviction", func(t *testing.T) {
		s := newStore(t)
		for i := range recent.MaxEntries + 5 {
			record(t, s, fmt.Sprintf(">%ds", i), epoch.Add(time.Duration(i)*time.Second))
		}
		got, err := s.List(context.Background(), 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != recent.MaxEntries {
			t.Fatalf("expected %d entries, got %d", recent.MaxEntries, len(got))
		}
		if got[0] != fmt.Sprintf(">%ds", recent.MaxEntries+4) {
			t.Errorf("newest entry = %q", got[0])
		}
		if slices.Contains(got, ">0s") {
			t.Error("oldest entry should have been evicted")
		}
	})
}

func record(t *testing.T, s recent.Store, value string, at time.Time) {
	t.Helper()
	if err := s.Record(context.Background(), value, at); err != nil {
		t.Fatalf("Record(%q): %v", value, err)
	}
}

func expectList(t *testing.T, s recent.Store, limit int, want []string) {
	t.Helper()
	got, err := s.List(context.Background(), limit)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(got, want) {
		t.Errorf("List(%d) = %v, want %v", limit, got, want)
	}
}
