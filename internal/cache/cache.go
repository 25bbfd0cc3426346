// Package cache is the time-boxed read-through cache of server-fetched
// record lists, keyed by owner. Fresh reads respect a short TTL; expired
// entries stay retrievable through GetStale so reads can degrade to
// last-known data while offline.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/agrotrack/fieldsync/internal/kv"
	"github.com/agrotrack/fieldsync/internal/logging"
	"github.com/agrotrack/fieldsync/internal/model"
)

// DefaultTTL is short on purpose: field data changes often and staleness
// directly misleads agronomic decisions.
const DefaultTTL = 120 * time.Second

// lruSize bounds the in-memory front; one entry per owner is plenty for a
// single-user device, the headroom covers reviewer sessions.
const lruSize = 32

// Entry is the persisted form of one owner's cached server list.
type Entry struct {
	Owner     string         `json:"owner"`
	Records   []model.Record `json:"records"`
	Timestamp time.Time      `json:"timestamp"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

func (e Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

type Cache struct {
	kv  kv.Repository
	lru *expirable.LRU[string, Entry]
	ttl time.Duration
	log logging.Logger

	now func() time.Time
}

func New(repo kv.Repository, ttl time.Duration, log logging.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		kv:  repo,
		lru: expirable.NewLRU[string, Entry](lruSize, nil, ttl),
		ttl: ttl,
		log: log,
		now: time.Now,
	}
}

func key(owner string) string {
	return "cachedRecords_" + owner
}

// Put replaces owner's cached list wholesale, stamping the fetch time and
// expiry. Persistence failures are reported but the in-memory entry still
// serves until restart.
func (c *Cache) Put(ctx context.Context, owner string, records []model.Record) error {
	now := c.now()
	entry := Entry{
		Owner:     owner,
		Records:   records,
		Timestamp: now,
		ExpiresAt: now.Add(c.ttl),
	}

	c.lru.Add(owner, entry)

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.kv.Set(ctx, key(owner), raw); err != nil {
		return fmt.Errorf("failed to persist cache entry: %w", err)
	}
	return nil
}

// Get returns owner's cached list while it is still fresh. ok=false means
// "no usable cache": the caller must fetch live or fall back to local data.
// An expired entry is evicted from the fresh path but kept on disk for
// GetStale.
func (c *Cache) Get(ctx context.Context, owner string) ([]model.Record, bool) {
	entry, ok := c.load(ctx, owner)
	if !ok {
		return nil, false
	}
	if entry.expired(c.now()) {
		c.lru.Remove(owner)
		return nil, false
	}
	return entry.Records, true
}

// GetStale returns owner's last cached list regardless of expiry. Used as
// the offline / fetch-failure fallback.
func (c *Cache) GetStale(ctx context.Context, owner string) ([]model.Record, bool) {
	entry, ok := c.load(ctx, owner)
	if !ok {
		return nil, false
	}
	return entry.Records, true
}

// Invalidate evicts owner's entry entirely, forcing the next read to fetch
// fresh. Called after any mutation that changes server-side truth.
func (c *Cache) Invalidate(ctx context.Context, owner string) error {
	c.lru.Remove(owner)
	if err := c.kv.Delete(ctx, key(owner)); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

func (c *Cache) load(ctx context.Context, owner string) (Entry, bool) {
	if entry, ok := c.lru.Get(owner); ok {
		return entry, true
	}

	raw, err := c.kv.Get(ctx, key(owner))
	if err != nil {
		c.log.Error(ctx, "failed to read cache entry", "owner", owner, "error", err)
		return Entry{}, false
	}
	if raw == nil {
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.Error(ctx, "failed to decode cache entry", "owner", owner, "error", err)
		return Entry{}, false
	}
	return entry, true
}
