package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPostingGuard_AcquireRelease(t *testing.T) {
	guard := NewInMemoryPostingGuard()
	ctx := context.Background()

	acquired, err := guard.Acquire(ctx, "transfer-post:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	// second attempt while held must fail
	acquired, err = guard.Acquire(ctx, "transfer-post:abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	// a different key is unaffected
	acquired, err = guard.Acquire(ctx, "transfer-post:def", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	require.NoError(t, guard.Release(ctx, "transfer-post:abc"))

	acquired, err = guard.Acquire(ctx, "transfer-post:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestInMemoryPostingGuard_Expiration(t *testing.T) {
	guard := NewInMemoryPostingGuard()
	ctx := context.Background()

	acquired, err := guard.Acquire(ctx, "transfer-post:abc", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	// expired hold no longer blocks; a crashed posting attempt must not pin
	// the transfer forever
	acquired, err = guard.Acquire(ctx, "transfer-post:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestInMemoryPostingGuard_ConcurrentAcquire(t *testing.T) {
	guard := NewInMemoryPostingGuard()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired, err := guard.Acquire(ctx, "transfer-post:contested", time.Minute)
			require.NoError(t, err)
			if acquired {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, guard.Size())
}
