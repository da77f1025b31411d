// ABOUTME: Bounded LRU+TTL cache of live MCP sessions for the HTTP gateway.
// ABOUTME: Owns eviction and asynchronous at-most-once disposal of session transports.

package session

import (
	"container/list"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrClosed indicates the cache has been torn down.
var ErrClosed = errors.New("session cache closed")

// sweepInterval is how often the background sweeper looks for expired
// entries. Expiry is also enforced lazily on access, so the sweeper only
// bounds how long a dead session can hold its transport.
const sweepInterval = time.Minute

// Transport is the byte channel a session binds. The cache only needs to
// dispose it; the gateway routes request bytes through the concrete type.
type Transport interface {
	HandleMessage(ctx context.Context, data []byte) ([]byte, error)
	Close() error
}

// Session is one isolated execution context bound to a client-visible
// streaming connection. It is owned exclusively by the cache from creation
// until disposal and never shared outside it.
type Session struct {
	ID        string
	Transport Transport
	CreatedAt time.Time
}

// Config holds configuration for a Cache.
type Config struct {
	// MaxEntries bounds the number of live sessions. The least recently
	// used entry is evicted to make room.
	MaxEntries int

	// TTL is the absolute lifetime of a session measured from creation.
	// Access does not refresh it.
	TTL time.Duration

	Logger *slog.Logger

	// Clock is injectable for tests. Nil means the real clock.
	Clock clockwork.Clock
}

// cacheEntry wraps a session with its recency bookkeeping.
type cacheEntry struct {
	sess        *Session
	elem        *list.Element
	disposeOnce sync.Once
}

// Cache is a thread-safe, bounded pool of sessions keyed by session id.
// Eviction happens on capacity pressure (LRU order), on TTL expiry (lazily
// on access and proactively by a background sweep), and on teardown.
// Disposal closes the session's transport asynchronously so a stuck
// transport never blocks other evictions or shutdown.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   *list.List // session ids, least recently used at front
	max     int
	ttl     time.Duration
	logger  *slog.Logger
	clock   clockwork.Clock
	done    chan struct{}
	closed  bool
}

// New creates a session cache and starts its background sweeper.
func New(cfg Config) *Cache {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	c := &Cache{
		entries: make(map[string]*cacheEntry),
		order:   list.New(),
		max:     cfg.MaxEntries,
		ttl:     cfg.TTL,
		logger:  logger,
		clock:   clock,
		done:    make(chan struct{}),
	}
	go c.sweep()
	return c
}

// GetOrCreate returns the live session for id, or constructs one via create
// and inserts it, evicting per policy if at capacity. An entry past its TTL
// counts as absent and is disposed on the spot.
func (c *Cache) GetOrCreate(id string, create func() (*Session, error)) (*Session, error) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	if e, ok := c.entries[id]; ok {
		if c.clock.Now().Sub(e.sess.CreatedAt) < c.ttl {
			c.order.MoveToBack(e.elem)
			sess := e.sess
			c.mu.Unlock()
			return sess, nil
		}
		// Expired: treat as absent and tear it down.
		c.removeLocked(id, e, "expired")
	}

	// Create outside any per-session state but under the cache lock, so two
	// concurrent requests for the same new id cannot both insert.
	sess, err := create()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	sess.ID = id

	if len(c.entries) >= c.max {
		c.evictOldestLocked()
	}

	elem := c.order.PushBack(id)
	c.entries[id] = &cacheEntry{sess: sess, elem: elem}

	c.mu.Unlock()

	c.logger.Debug("session created", "session_id", id)
	return sess, nil
}

// Evict removes the session with the given id, if present, and disposes it.
func (c *Cache) Evict(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return false
	}
	c.removeLocked(id, e, "evicted")
	return true
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Teardown drains every entry and stops the sweeper. Each session is
// disposed at most once even if an eviction races the teardown. Safe to
// call multiple times.
func (c *Cache) Teardown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)

	for id, e := range c.entries {
		c.removeLocked(id, e, "teardown")
	}
	c.mu.Unlock()
}

// evictOldestLocked removes the least recently used entry. Must be called
// with mu held.
func (c *Cache) evictOldestLocked() {
	front := c.order.Front()
	if front == nil {
		return
	}

	id, _ := front.Value.(string)
	if e, ok := c.entries[id]; ok {
		c.removeLocked(id, e, "capacity")
	}
}

// removeLocked unlinks an entry and schedules its disposal. Must be called
// with mu held.
func (c *Cache) removeLocked(id string, e *cacheEntry, reason string) {
	c.order.Remove(e.elem)
	delete(c.entries, id)
	c.dispose(e, reason)
}

// dispose closes the entry's transport asynchronously, at most once. Close
// failures are logged and never propagate: cleanup is best-effort and one
// stuck transport must not block anything else.
func (c *Cache) dispose(e *cacheEntry, reason string) {
	e.disposeOnce.Do(func() {
		sess := e.sess
		logger := c.logger
		go func() {
			if err := sess.Transport.Close(); err != nil {
				logger.Warn("session dispose failed",
					"session_id", sess.ID,
					"reason", reason,
					"error", err,
				)
				return
			}
			logger.Debug("session disposed", "session_id", sess.ID, "reason", reason)
		}()
	})
}

// sweep periodically evicts expired entries so their transports are torn
// down promptly even when nothing accesses them again.
func (c *Cache) sweep() {
	ticker := c.clock.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			c.runSweep()
		case <-c.done:
			return
		}
	}
}

// runSweep removes all expired entries.
func (c *Cache) runSweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	now := c.clock.Now()
	for id, e := range c.entries {
		if now.Sub(e.sess.CreatedAt) >= c.ttl {
			c.removeLocked(id, e, "expired")
		}
	}
}
