package kv

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the behavior every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "a", "1"))
	val, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	require.NoError(t, s.Set(ctx, "a", "2"))
	val, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", val)

	require.NoError(t, s.Remove(ctx, "a"))
	require.NoError(t, s.Remove(ctx, "a"))
	_, err = s.Get(ctx, "a")
	require.ErrorIs(t, err, ErrNotFound)

	err = s.Update(ctx, "b", func(cur string, exists bool) (string, error) {
		assert.False(t, exists)
		assert.Empty(t, cur)
		return "first", nil
	})
	require.NoError(t, err)

	abort := errors.New("abort")
	err = s.Update(ctx, "b", func(cur string, exists bool) (string, error) {
		assert.True(t, exists)
		assert.Equal(t, "first", cur)
		return "ignored", abort
	})
	require.ErrorIs(t, err, abort)
	val, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "first", val)

	require.NoError(t, s.Ping(ctx))
}

// exerciseConcurrentUpdates checks that no increment is lost.
func exerciseConcurrentUpdates(t *testing.T, s Store, workers int) {
	t.Helper()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, "counter", func(cur string, exists bool) (string, error) {
				n := 0
				if exists {
					var err error
					if n, err = strconv.Atoi(cur); err != nil {
						return "", err
					}
				}
				return strconv.Itoa(n + 1), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	val, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(workers), val)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	exerciseConcurrentUpdates(t, NewMemoryStore(), 50)
}

func TestWithPrefixIsolatesNamespaces(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	a := WithPrefix(base, "ws:a:")
	b := WithPrefix(base, "ws:b:")

	exerciseStore(t, a)

	require.NoError(t, a.Set(ctx, "ticketapp_session", "token_a"))
	_, err := b.Get(ctx, "ticketapp_session")
	require.ErrorIs(t, err, ErrNotFound)

	raw, err := base.Get(ctx, "ws:a:ticketapp_session")
	require.NoError(t, err)
	assert.Equal(t, "token_a", raw)

	require.NoError(t, a.Close())
	assert.NoError(t, base.Ping(ctx))
}
