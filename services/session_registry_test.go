package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSessionRegistry_CreateAndLookup(t *testing.T) {
	registry := NewSessionRegistry()
	chain := &staticChain{answer: "a"}

	id, err := registry.Create(chain)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := registry.Lookup(id)
	require.NoError(t, err)
	assert.Same(t, chain, got)
	assert.Equal(t, 1, registry.Len())
}

func TestSessionRegistry_UnknownIDsFailTheSameWay(t *testing.T) {
	registry := NewSessionRegistry()
	_, err := registry.Create(&staticChain{})
	require.NoError(t, err)

	for _, id := range []string{"invalid-session-id", "", "00000000-0000-0000-0000-000000000000", "../../etc"} {
		for attempt := 0; attempt < 2; attempt++ {
			chain, err := registry.Lookup(id)
			assert.ErrorIs(t, err, ErrSessionNotFound, "id %q attempt %d", id, attempt)
			assert.Nil(t, chain)
		}
	}
}

func TestSessionRegistry_ConcurrentCreates(t *testing.T) {
	registry := NewSessionRegistry()
	const n = 200

	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := registry.Create(&staticChain{answer: fmt.Sprint(i)})
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i, id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true

		chain, err := registry.Lookup(id)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), chain.(*staticChain).answer)
	}
	assert.Equal(t, n, registry.Len())
}

func TestSessionRegistry_NeverReusesIDs(t *testing.T) {
	ids := []string{"dup", "dup", "dup", "fresh"}
	next := 0
	registry := NewSessionRegistry(WithIDGenerator(func() string {
		id := ids[next]
		next++
		return id
	}))

	first, err := registry.Create(&staticChain{})
	require.NoError(t, err)
	assert.Equal(t, "dup", first)

	// Evicting does not free the id for reuse.
	require.True(t, registry.Evict(first))

	second, err := registry.Create(&staticChain{})
	require.NoError(t, err)
	assert.Equal(t, "fresh", second)
}

func TestSessionRegistry_GivesUpOnPersistentCollisions(t *testing.T) {
	registry := NewSessionRegistry(WithIDGenerator(func() string { return "same" }))

	_, err := registry.Create(&staticChain{})
	require.NoError(t, err)

	_, err = registry.Create(&staticChain{})
	assert.Error(t, err)
	assert.Equal(t, 1, registry.Len())
}

func TestSessionRegistry_EvictClosesChain(t *testing.T) {
	registry := NewSessionRegistry()
	chain := &staticChain{}
	id, err := registry.Create(chain)
	require.NoError(t, err)

	assert.True(t, registry.Evict(id))
	assert.True(t, chain.closed.Load())
	assert.False(t, registry.Evict(id))

	_, err = registry.Lookup(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRegistry_MaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	registry := NewSessionRegistry(WithMaxSessions(2))

	a, b, c := &staticChain{}, &staticChain{}, &staticChain{}
	idA, err := registry.Create(a)
	require.NoError(t, err)
	idB, err := registry.Create(b)
	require.NoError(t, err)

	// Touch A so B becomes the oldest.
	_, err = registry.Lookup(idA)
	require.NoError(t, err)

	idC, err := registry.Create(c)
	require.NoError(t, err)

	assert.Equal(t, 2, registry.Len())
	assert.True(t, b.closed.Load())
	_, err = registry.Lookup(idB)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	for _, id := range []string{idA, idC} {
		_, err := registry.Lookup(id)
		assert.NoError(t, err)
	}
}

func TestSessionRegistry_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	registry := NewSessionRegistry(WithTTL(time.Hour), WithClock(clock.Now))

	stale, fresh := &staticChain{}, &staticChain{}
	staleID, err := registry.Create(stale)
	require.NoError(t, err)

	clock.Advance(40 * time.Minute)
	freshID, err := registry.Create(fresh)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)

	_, err = registry.Lookup(staleID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.True(t, stale.closed.Load())

	_, err = registry.Lookup(freshID)
	assert.NoError(t, err, "lookup refreshes the session")

	clock.Advance(59 * time.Minute)
	assert.Zero(t, registry.SweepExpired())

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, registry.SweepExpired())
	assert.True(t, fresh.closed.Load())
	assert.Zero(t, registry.Len())
}

func TestSessionRegistry_RunSweepsUntilCancelled(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	registry := NewSessionRegistry(WithTTL(time.Minute), WithClock(clock.Now))

	chain := &staticChain{}
	_, err := registry.Create(chain)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		registry.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, chain.closed.Load())

	cancel()
	<-done
}

func TestSessionRegistry_RunWithoutTTLReturns(t *testing.T) {
	registry := NewSessionRegistry()
	registry.Run(context.Background(), time.Millisecond)
}
