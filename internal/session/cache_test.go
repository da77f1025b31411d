// ABOUTME: Tests for the session cache covering LRU eviction, TTL expiry and teardown.
// ABOUTME: Verifies transports are disposed asynchronously and at most once per session.

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records Close calls so tests can assert disposal behavior.
type fakeTransport struct {
	closeCount atomic.Int32
	closeErr   error
}

func (f *fakeTransport) HandleMessage(ctx context.Context, data []byte) ([]byte, error) {
	return nil, nil
}

func (f *fakeTransport) Close() error {
	f.closeCount.Add(1)
	return f.closeErr
}

func newTestCache(t *testing.T, max int, ttl time.Duration, clock clockwork.Clock) *Cache {
	t.Helper()
	c := New(Config{MaxEntries: max, TTL: ttl, Clock: clock})
	t.Cleanup(c.Teardown)
	return c
}

func makeSession(clock clockwork.Clock, transport Transport) func() (*Session, error) {
	return func() (*Session, error) {
		return &Session{Transport: transport, CreatedAt: clock.Now()}, nil
	}
}

func eventuallyClosed(t *testing.T, tr *fakeTransport, want int32) {
	t.Helper()
	require.Eventually(t, func() bool {
		return tr.closeCount.Load() == want
	}, 2*time.Second, 5*time.Millisecond, "transport close count should reach %d", want)
}

func TestGetOrCreate_ReusesLiveSession(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newTestCache(t, 10, time.Hour, clock)

	created := 0
	create := func() (*Session, error) {
		created++
		return &Session{Transport: &fakeTransport{}, CreatedAt: clock.Now()}, nil
	}

	first, err := cache.GetOrCreate("s1", create)
	require.NoError(t, err)
	assert.Equal(t, "s1", first.ID)

	second, err := cache.GetOrCreate("s1", create)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, cache.Len())
}

func TestGetOrCreate_CreateErrorDoesNotInsert(t *testing.T) {
	cache := newTestCache(t, 10, time.Hour, nil)

	boom := errors.New("no token")
	_, err := cache.GetOrCreate("s1", func() (*Session, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())
}

func TestCapacity_EvictsLeastRecentlyUsed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newTestCache(t, 2, time.Hour, clock)

	trA := &fakeTransport{}
	trB := &fakeTransport{}
	trC := &fakeTransport{}

	_, err := cache.GetOrCreate("a", makeSession(clock, trA))
	require.NoError(t, err)
	_, err = cache.GetOrCreate("b", makeSession(clock, trB))
	require.NoError(t, err)

	// Touch a so b becomes the eviction candidate.
	_, err = cache.GetOrCreate("a", makeSession(clock, trA))
	require.NoError(t, err)

	_, err = cache.GetOrCreate("c", makeSession(clock, trC))
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len())
	eventuallyClosed(t, trB, 1)
	assert.Equal(t, int32(0), trA.closeCount.Load())
	assert.Equal(t, int32(0), trC.closeCount.Load())
}

func TestTTL_IsAbsoluteNotSliding(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newTestCache(t, 10, 30*time.Minute, clock)

	tr := &fakeTransport{}
	first, err := cache.GetOrCreate("s1", makeSession(clock, tr))
	require.NoError(t, err)

	// Keep accessing it; the deadline still runs from creation.
	clock.Advance(20 * time.Minute)
	again, err := cache.GetOrCreate("s1", makeSession(clock, tr))
	require.NoError(t, err)
	assert.Same(t, first, again)

	clock.Advance(10 * time.Minute)

	replacement := &fakeTransport{}
	fresh, err := cache.GetOrCreate("s1", makeSession(clock, replacement))
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)

	eventuallyClosed(t, tr, 1)
	assert.Equal(t, int32(0), replacement.closeCount.Load())
}

func TestSweep_DisposesExpiredWithoutAccess(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newTestCache(t, 10, 30*time.Second, clock)

	// Wait for the sweeper's ticker to register before moving the clock.
	clock.BlockUntil(1)

	tr := &fakeTransport{}
	_, err := cache.GetOrCreate("s1", makeSession(clock, tr))
	require.NoError(t, err)

	clock.Advance(sweepInterval)

	eventuallyClosed(t, tr, 1)
	require.Eventually(t, func() bool {
		return cache.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEvict_RemovesAndDisposes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newTestCache(t, 10, time.Hour, clock)

	tr := &fakeTransport{}
	_, err := cache.GetOrCreate("s1", makeSession(clock, tr))
	require.NoError(t, err)

	assert.True(t, cache.Evict("s1"))
	assert.False(t, cache.Evict("s1"))
	assert.Equal(t, 0, cache.Len())
	eventuallyClosed(t, tr, 1)
}

func TestDispose_FailureIsSwallowed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := newTestCache(t, 10, time.Hour, clock)

	tr := &fakeTransport{closeErr: errors.New("already gone")}
	_, err := cache.GetOrCreate("s1", makeSession(clock, tr))
	require.NoError(t, err)

	assert.True(t, cache.Evict("s1"))
	eventuallyClosed(t, tr, 1)

	// The cache stays usable after a failed dispose.
	_, err = cache.GetOrCreate("s2", makeSession(clock, &fakeTransport{}))
	require.NoError(t, err)
}

func TestTeardown_DrainsAllAndClosesCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := New(Config{MaxEntries: 10, TTL: time.Hour, Clock: clock})

	transports := make([]*fakeTransport, 3)
	for i := range transports {
		transports[i] = &fakeTransport{}
		_, err := cache.GetOrCreate(fmt.Sprintf("s%d", i), makeSession(clock, transports[i]))
		require.NoError(t, err)
	}

	cache.Teardown()
	cache.Teardown() // idempotent

	assert.Equal(t, 0, cache.Len())
	for _, tr := range transports {
		eventuallyClosed(t, tr, 1)
	}

	_, err := cache.GetOrCreate("late", makeSession(clock, &fakeTransport{}))
	require.ErrorIs(t, err, ErrClosed)
}

func TestDispose_AtMostOnceUnderConcurrentEvictAndTeardown(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := New(Config{MaxEntries: 10, TTL: time.Hour, Clock: clock})

	tr := &fakeTransport{}
	_, err := cache.GetOrCreate("s1", makeSession(clock, tr))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Evict("s1")
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		cache.Teardown()
	}()
	wg.Wait()

	eventuallyClosed(t, tr, 1)

	// Give any stray duplicate dispose a chance to fire before asserting.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), tr.closeCount.Load())
}
