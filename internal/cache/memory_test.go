package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("basic operations", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)
		defer func() { _ = store.Close() }()

		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrMiss)

		require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
		value, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), value)

		// Returned slices are copies.
		value[0] = 'x'
		again, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), again)
	})

	t.Run("expiration", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)
		defer func() { _ = store.Close() }()

		now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }

		require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))
		now = now.Add(59 * time.Minute)
		_, err := store.Get(ctx, "k")
		assert.NoError(t, err)

		now = now.Add(2 * time.Minute)
		_, err = store.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrMiss)

		store.sweep()
		assert.Equal(t, 0, store.Len())
	})

	t.Run("concurrent access", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)
		defer func() { _ = store.Close() }()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					_ = store.Set(ctx, "shared", []byte("v"), time.Minute)
					_, _ = store.Get(ctx, "shared")
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, store.Len())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		store := NewMemoryStore(time.Minute)
		assert.NoError(t, store.Close())
		assert.NoError(t, store.Close())
	})
}
