// Package reconcile keeps a locally displayed list in step with the server.
// Every successful mutation is followed by a full refetch; a failed mutation
// leaves the list exactly as it was.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/existflow/taskprox/internal/logger"
)

// StaleError reports that a mutation succeeded but the refreshed list could
// not be fetched, so the items shown are out of date.
type StaleError struct {
	Err error
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("changes saved but the list could not be refreshed: %v", e.Err)
}

func (e *StaleError) Unwrap() error { return e.Err }

// IsStale reports whether err is a *StaleError
func IsStale(err error) bool {
	var s *StaleError
	return errors.As(err, &s)
}

// Fetcher returns the authoritative list
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Mutation performs one server-side change
type Mutation func(ctx context.Context) error

// List is a locally held copy of a server-side collection
type List[T any] struct {
	fetch Fetcher[T]

	mu    sync.Mutex
	items []T
	stale bool
}

// New creates an empty list backed by fetch
func New[T any](fetch Fetcher[T]) *List[T] {
	return &List[T]{fetch: fetch}
}

// Load replaces the items with a fresh fetch
func (l *List[T]) Load(ctx context.Context) ([]T, error) {
	items, err := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.stale = true
		return l.snapshot(), err
	}
	l.items = items
	l.stale = false
	return l.snapshot(), nil
}

// Apply runs m and then refetches. On failure the previous items are
// returned together with the error.
func (l *List[T]) Apply(ctx context.Context, m Mutation) ([]T, error) {
	if err := m(ctx); err != nil {
		logger.Warn("Mutation failed, keeping current list", logger.F("error", err))
		return l.Items(), err
	}

	items, err := l.Load(ctx)
	if err != nil {
		logger.Warn("Refetch after mutation failed", logger.F("error", err))
		return items, &StaleError{Err: err}
	}
	return items, nil
}

// Items returns a copy of the current items
func (l *List[T]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Stale reports whether the last fetch failed
func (l *List[T]) Stale() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stale
}

// Set replaces the items without fetching, used when a caller already holds
// a fresh list
func (l *List[T]) Set(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append([]T(nil), items...)
	l.stale = false
}

func (l *List[T]) snapshot() []T {
	return append([]T(nil), l.items...)
}
