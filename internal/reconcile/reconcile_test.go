package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	items    []string
	fetchErr error
	fetches  int
}

func (s *fakeServer) fetch(context.Context) ([]string, error) {
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return append([]string(nil), s.items...), nil
}

func (s *fakeServer) remove(item string) Mutation {
	return func(context.Context) error {
		for i, it := range s.items {
			if it == item {
				s.items = append(s.items[:i], s.items[i+1:]...)
				return nil
			}
		}
		return errors.New("not found")
	}
}

func TestLoad(t *testing.T) {
	srv := &fakeServer{items: []string{"a", "b"}}
	l := New(srv.fetch)

	items, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)
	assert.False(t, l.Stale())
}

func TestApplyRefetches(t *testing.T) {
	srv := &fakeServer{items: []string{"a", "b", "c"}}
	l := New(srv.fetch)
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	// another client adds an item; the refetch picks it up
	srv.items = append(srv.items, "d")

	items, err := l.Apply(context.Background(), srv.remove("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, items)
	assert.Equal(t, 2, srv.fetches)
}

func TestFailedDeleteKeepsItem(t *testing.T) {
	srv := &fakeServer{items: []string{"a", "b"}}
	l := New(srv.fetch)
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	boom := errors.New("500 internal error")
	items, err := l.Apply(context.Background(), func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, IsStale(err))
	assert.Equal(t, []string{"a", "b"}, items)
	assert.Equal(t, []string{"a", "b"}, l.Items())
	assert.Equal(t, 1, srv.fetches)
}

func TestRefetchFailureMarksStale(t *testing.T) {
	srv := &fakeServer{items: []string{"a", "b"}}
	l := New(srv.fetch)
	_, err := l.Load(context.Background())
	require.NoError(t, err)

	netErr := errors.New("connection reset")
	srv.fetchErr = netErr
	items, err := l.Apply(context.Background(), srv.remove("a"))

	assert.True(t, IsStale(err))
	assert.ErrorIs(t, err, netErr)
	assert.Equal(t, []string{"a", "b"}, items)
	assert.True(t, l.Stale())

	srv.fetchErr = nil
	items, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, items)
	assert.False(t, l.Stale())
}

func TestItemsIsCopy(t *testing.T) {
	l := New(func(context.Context) ([]string, error) { return nil, nil })
	l.Set([]string{"x"})

	items := l.Items()
	items[0] = "changed"
	assert.Equal(t, []string{"x"}, l.Items())
}
