// Package relay implements the task relay queue: a process-wide key→list
// cache with TTL eviction and an optional durable fallback store, so queued
// tasks survive process restarts. State is always explicit, time always
// comes from the injected clock.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Clock supplies the current time. Injected so eviction is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// DurableStore is the persistent fallback behind the in-memory cache. The
// store drivers implement it.
type DurableStore interface {
	AppendRelayTask(ctx context.Context, key string, payload []byte, expiresAt time.Time) error
	DrainRelayTasks(ctx context.Context, key string, now time.Time) ([][]byte, error)
	DeleteExpiredRelayTasks(ctx context.Context, now time.Time) (int, error)
}

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Cache is the relay service. With a durable store configured, pushes are
// written through and pops drain the durable copy, which is a superset of
// memory; without one, memory alone serves.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]entry

	ttl     time.Duration
	clock   Clock
	durable DurableStore
}

// New creates a relay cache. durable may be nil for a purely in-memory relay.
func New(ttl time.Duration, clock Clock, durable DurableStore) *Cache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Cache{
		entries: make(map[string][]entry),
		ttl:     ttl,
		clock:   clock,
		durable: durable,
	}
}

// Push appends a payload under key with the configured TTL.
func (c *Cache) Push(ctx context.Context, key string, payload []byte) error {
	expiresAt := c.clock.Now().Add(c.ttl)

	if c.durable != nil {
		if err := c.durable.AppendRelayTask(ctx, key, payload, expiresAt); err != nil {
			return eris.Wrap(err, "relay: persist task")
		}
	}

	c.mu.Lock()
	c.entries[key] = append(c.entries[key], entry{payload: payload, expiresAt: expiresAt})
	c.mu.Unlock()
	return nil
}

// Pop drains all live payloads for key in insertion order. Expired entries
// are dropped, never returned.
func (c *Cache) Pop(ctx context.Context, key string) ([][]byte, error) {
	now := c.clock.Now()

	c.mu.Lock()
	entries := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if c.durable != nil {
		payloads, err := c.durable.DrainRelayTasks(ctx, key, now)
		if err != nil {
			return nil, eris.Wrap(err, "relay: drain durable tasks")
		}
		return payloads, nil
	}

	var live [][]byte
	for _, e := range entries {
		if e.expiresAt.After(now) {
			live = append(live, e.payload)
		}
	}
	return live, nil
}

// Sweep evicts expired entries from memory and the durable store. Returns
// the number of durable rows removed.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	now := c.clock.Now()

	c.mu.Lock()
	for key, entries := range c.entries {
		var live []entry
		for _, e := range entries {
			if e.expiresAt.After(now) {
				live = append(live, e)
			}
		}
		if len(live) == 0 {
			delete(c.entries, key)
		} else {
			c.entries[key] = live
		}
	}
	c.mu.Unlock()

	if c.durable == nil {
		return 0, nil
	}
	n, err := c.durable.DeleteExpiredRelayTasks(ctx, now)
	return n, eris.Wrap(err, "relay: sweep durable tasks")
}

// RunJanitor sweeps on the given interval until ctx is cancelled.
func (c *Cache) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	log := zap.L().With(zap.String("component", "relay.janitor"))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("relay janitor stopped")
			return
		case <-ticker.C:
			n, err := c.Sweep(ctx)
			if err != nil {
				log.Error("relay sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("relay sweep evicted tasks", zap.Int("evicted", n))
			}
		}
	}
}
