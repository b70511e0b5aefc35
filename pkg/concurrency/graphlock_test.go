package concurrency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphLockAllowsConcurrentReaders(t *testing.T) {
	g := NewGraphLock()
	var wg sync.WaitGroup
	active := int32(0)
	maxActive := int32(0)
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.RLock()
			defer g.RUnlock()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Greater(t, maxActive, int32(1), "expected multiple readers to hold the lock concurrently")
}

func TestGraphLockExcludesWriterFromReaders(t *testing.T) {
	g := NewGraphLock()
	g.RLock()

	acquired := make(chan struct{})
	go func() {
		g.Lock()
		close(acquired)
		g.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("writer acquired the lock while a reader still held it")
	case <-time.After(20 * time.Millisecond):
	}
	g.RUnlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the lock after the reader released it")
	}
}

func TestGraphLockContextCancelledWhileBlocked(t *testing.T) {
	g := NewGraphLock()
	g.Lock()
	defer g.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := g.RLockContext(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGraphLockContextSucceedsWhenFree(t *testing.T) {
	g := NewGraphLock()
	ctx := context.Background()
	require.NoError(t, g.RLockContext(ctx))
	g.RUnlock()
}

func TestKeySpaceLockSerializesHolders(t *testing.T) {
	k := NewKeySpaceLock()
	k.Lock()

	acquired := make(chan struct{})
	go func() {
		k.Lock()
		close(acquired)
		k.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the key-space lock while the first still held it")
	case <-time.After(20 * time.Millisecond):
	}
	k.Unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the key-space lock")
	}
}
