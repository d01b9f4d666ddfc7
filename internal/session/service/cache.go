package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/internal/session/store"
	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/aussiebroadwan/sessioncache/pkg/slogx"
	"golang.org/x/sync/errgroup"
)

// storedState is the durable payload record of a snapshot.
type storedState struct {
	State    domain.CachedAuthState `json:"state"`
	CachedAt time.Time              `json:"cached_at"`
}

type cacheEntry struct {
	state    domain.CachedAuthState
	metadata domain.CacheMetadata
	cachedAt time.Time
}

func (e *cacheEntry) annotate(source domain.Source, now time.Time) domain.CachedEntry {
	return domain.CachedEntry{
		State:    e.state.Clone(),
		Metadata: e.metadata.Clone(),
		Source:   source,
		Age:      ageAt(e.cachedAt, now),
		CachedAt: e.cachedAt,
	}
}

// SessionCache is the two-tier cache of the authentication snapshot. Reads
// try memory then the durable mirror; writes always land in memory and are
// mirrored durably on a best-effort basis when persistence is enabled.
type SessionCache struct {
	kv      store.KV
	clock   clockx.Clock
	bus     *EventBus
	logger  *slog.Logger
	metrics *Metrics
	timings Timings
	persist bool

	mu        sync.RWMutex
	entry     *cacheEntry
	lifecycle *domain.LifecycleRecord
}

func NewSessionCache(
	kv store.KV,
	clock clockx.Clock,
	bus *EventBus,
	timings Timings,
	persist bool,
	logger *slog.Logger,
	metrics *Metrics,
) *SessionCache {
	return &SessionCache{
		kv:      kv,
		clock:   clock,
		bus:     bus,
		logger:  slogx.OrDiscard(logger),
		metrics: orNewMetrics(metrics),
		timings: timings,
		persist: persist,
	}
}

// Persistent reports whether snapshots are mirrored durably.
func (c *SessionCache) Persistent() bool { return c.persist }

// Put stamps and stores a snapshot. The memory write always succeeds; a
// non-nil error only reports that the durable mirror could not be written.
func (c *SessionCache) Put(ctx context.Context, state domain.CachedAuthState, meta domain.CacheMetadata) error {
	now := c.clock.Now()
	meta = meta.Clone()
	meta.CachedAt = now

	entry := &cacheEntry{state: state.Clone(), metadata: meta, cachedAt: now}

	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()

	var err error
	if c.persist {
		err = c.mirror(ctx, entry)
	}

	if err != nil {
		c.metrics.CacheWrites.WithLabelValues("storage_error").Inc()
	} else {
		c.metrics.CacheWrites.WithLabelValues("ok").Inc()
	}

	c.bus.Publish(domain.EventStateCached, domain.StateCachedPayload{
		State:    entry.state.Clone(),
		Metadata: entry.metadata.Clone(),
	})
	return err
}

// mirror writes the payload and metadata records concurrently.
func (c *SessionCache) mirror(ctx context.Context, entry *cacheEntry) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(guarded(func() error {
		return store.SetJSON(gctx, c.kv, store.KeySessionState, storedState{
			State:    entry.state,
			CachedAt: entry.cachedAt,
		})
	}))
	g.Go(guarded(func() error {
		return store.SetJSON(gctx, c.kv, store.KeySessionMetadata, entry.metadata)
	}))

	if err := g.Wait(); err != nil {
		c.storageFailed("set", store.KeySessionState, err)
		return fmt.Errorf("session cache: durable mirror: %w", err)
	}
	return nil
}

// guarded turns a panic in fn into an error so errgroup workers cannot take
// the process down.
func guarded(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrUnexpected, r)
			}
		}()
		return fn()
	}
}

// Get returns a copy of the snapshot if one is valid. Fresh means
// age <= CacheExpiry; with allowStale, age <= 2*CacheExpiry is accepted.
// A durable hit newer than memory replaces the memory snapshot.
func (c *SessionCache) Get(ctx context.Context, allowStale bool) (domain.CachedEntry, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	entry := c.entry
	c.mu.RUnlock()

	if entry != nil && c.valid(ageAt(entry.cachedAt, now), allowStale) {
		c.metrics.CacheReads.WithLabelValues(string(domain.SourceMemory)).Inc()
		return entry.annotate(domain.SourceMemory, now), true
	}

	if c.persist {
		if durable, ok := c.readDurable(ctx); ok && c.valid(ageAt(durable.cachedAt, now), allowStale) {
			c.mu.Lock()
			if c.entry == nil || c.entry.cachedAt.Before(durable.cachedAt) {
				c.entry = durable
			}
			c.mu.Unlock()

			c.metrics.CacheReads.WithLabelValues(string(domain.SourceStorage)).Inc()
			return durable.annotate(domain.SourceStorage, now), true
		}
	}

	c.metrics.CacheReads.WithLabelValues("miss").Inc()
	return domain.CachedEntry{}, false
}

func (c *SessionCache) valid(age time.Duration, allowStale bool) bool {
	if age <= c.timings.CacheExpiry {
		return true
	}
	return allowStale && age <= c.timings.StaleLimit()
}

func (c *SessionCache) readDurable(ctx context.Context) (*cacheEntry, bool) {
	var payload storedState
	if err := store.GetJSON(ctx, c.kv, store.KeySessionState, &payload); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.storageFailed("get", store.KeySessionState, err)
		}
		return nil, false
	}

	var meta domain.CacheMetadata
	if err := store.GetJSON(ctx, c.kv, store.KeySessionMetadata, &meta); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.storageFailed("get", store.KeySessionMetadata, err)
		}
		meta = domain.CacheMetadata{CachedAt: payload.CachedAt}
	}

	if payload.CachedAt.IsZero() {
		c.logger.Warn("discarding durable snapshot without timestamp", "error", ErrCorrupt)
		return nil, false
	}

	return &cacheEntry{state: payload.State, metadata: meta, cachedAt: payload.CachedAt}, true
}

// MarkBackgrounded tags the current snapshot with the background time and
// re-persists it. The original cache timestamp is kept so the snapshot keeps
// ageing while the process is suspended. It reports whether a snapshot existed.
func (c *SessionCache) MarkBackgrounded(ctx context.Context, at time.Time) bool {
	c.mu.Lock()
	if c.entry == nil {
		c.mu.Unlock()
		return false
	}

	updated := &cacheEntry{
		state:    c.entry.state.Clone(),
		metadata: c.entry.metadata.Clone(),
		cachedAt: c.entry.cachedAt,
	}
	bg := at
	updated.metadata.BackgroundedAt = &bg
	if updated.state.SessionInfo != nil {
		updated.state.SessionInfo.BackgroundedAt = &bg
	}
	c.entry = updated
	c.mu.Unlock()

	if c.persist {
		_ = c.mirror(ctx, updated)
	}
	return true
}

// Clear removes the memory snapshot and every durable key owned by the
// cache, then publishes state_cleared. Clearing twice is the same as once.
func (c *SessionCache) Clear(ctx context.Context, reason string) error {
	c.mu.Lock()
	c.entry = nil
	c.lifecycle = nil
	c.mu.Unlock()

	var errs []error
	if c.persist {
		for _, key := range c.durableKeys(ctx) {
			if err := c.kv.Remove(ctx, key); err != nil {
				c.storageFailed("remove", key, err)
				errs = append(errs, err)
			}
		}
	}

	c.logger.Info("session cache cleared", "reason", reason)
	c.bus.Publish(domain.EventStateCleared, domain.StateClearedPayload{Reason: reason})
	return errors.Join(errs...)
}

// durableKeys lists the session keys present in the store, falling back to
// the well-known keys when listing fails.
func (c *SessionCache) durableKeys(ctx context.Context) []string {
	known := []string{store.KeySessionState, store.KeySessionMetadata, store.KeySessionLifecycle}

	keys, err := c.kv.Keys(ctx)
	if err != nil {
		c.storageFailed("keys", "", err)
		return known
	}

	seen := make(map[string]bool, len(known))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasPrefix(k, store.SessionPrefix) {
			out = append(out, k)
			seen[k] = true
		}
	}
	for _, k := range known {
		if !seen[k] {
			out = append(out, k)
		}
	}
	return out
}

// CleanupStale drops snapshots older than 2*CacheExpiry and lifecycle
// records older than MaxBackgroundDuration, in memory and durably. It
// returns the number of items removed. A background record is never
// removed here: the next foreground consumes it to decide on force_reauth.
func (c *SessionCache) CleanupStale(ctx context.Context) int {
	now := c.clock.Now()
	removed := 0

	c.mu.Lock()
	if c.entry != nil && ageAt(c.entry.cachedAt, now) > c.timings.StaleLimit() {
		c.entry = nil
		removed++
	}
	if c.lifecycle != nil && c.lifecycleExpired(*c.lifecycle, now) {
		c.lifecycle = nil
		removed++
	}
	c.mu.Unlock()

	if c.persist {
		removed += c.cleanupDurableSnapshot(ctx, now)
		removed += c.cleanupDurableLifecycle(ctx, now)
	}

	if removed > 0 {
		c.metrics.CleanupRemoved.Add(float64(removed))
	}
	return removed
}

func (c *SessionCache) cleanupDurableSnapshot(ctx context.Context, now time.Time) int {
	var payload storedState
	err := store.GetJSON(ctx, c.kv, store.KeySessionState, &payload)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return 0
	case err != nil && !errors.Is(err, store.ErrDecode):
		c.storageFailed("get", store.KeySessionState, err)
		return 0
	case err == nil && ageAt(payload.CachedAt, now) <= c.timings.StaleLimit():
		return 0
	}

	// Stale or undecodable. The payload and metadata records count as one item.
	if err := c.kv.Remove(ctx, store.KeySessionState); err != nil {
		c.storageFailed("remove", store.KeySessionState, err)
		return 0
	}
	if err := c.kv.Remove(ctx, store.KeySessionMetadata); err != nil {
		c.storageFailed("remove", store.KeySessionMetadata, err)
	}
	return 1
}

func (c *SessionCache) cleanupDurableLifecycle(ctx context.Context, now time.Time) int {
	var rec domain.LifecycleRecord
	err := store.GetJSON(ctx, c.kv, store.KeySessionLifecycle, &rec)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return 0
	case err != nil && !errors.Is(err, store.ErrDecode):
		c.storageFailed("get", store.KeySessionLifecycle, err)
		return 0
	case err == nil && !c.lifecycleExpired(rec, now):
		return 0
	}

	if err := c.kv.Remove(ctx, store.KeySessionLifecycle); err != nil {
		c.storageFailed("remove", store.KeySessionLifecycle, err)
		return 0
	}
	return 1
}

func (c *SessionCache) lifecycleExpired(rec domain.LifecycleRecord, now time.Time) bool {
	if rec.Phase == domain.PhaseBackground {
		return false
	}
	return ageAt(rec.UpdatedAt, now) > c.timings.MaxBackgroundDuration
}

// SaveLifecycle records the lifecycle breadcrumb in memory and, when
// persistence is enabled, durably.
func (c *SessionCache) SaveLifecycle(ctx context.Context, rec domain.LifecycleRecord) error {
	c.mu.Lock()
	saved := rec
	c.lifecycle = &saved
	c.mu.Unlock()

	if !c.persist {
		return nil
	}
	if err := store.SetJSON(ctx, c.kv, store.KeySessionLifecycle, rec); err != nil {
		c.storageFailed("set", store.KeySessionLifecycle, err)
		return fmt.Errorf("session cache: save lifecycle: %w", err)
	}
	return nil
}

// Lifecycle returns the last lifecycle breadcrumb, preferring memory.
func (c *SessionCache) Lifecycle(ctx context.Context) (domain.LifecycleRecord, bool) {
	c.mu.RLock()
	rec := c.lifecycle
	c.mu.RUnlock()

	if rec != nil {
		return *rec, true
	}
	if !c.persist {
		return domain.LifecycleRecord{}, false
	}

	var durable domain.LifecycleRecord
	if err := store.GetJSON(ctx, c.kv, store.KeySessionLifecycle, &durable); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.storageFailed("get", store.KeySessionLifecycle, err)
		}
		return domain.LifecycleRecord{}, false
	}
	return durable, true
}

func (c *SessionCache) storageFailed(op, key string, err error) {
	c.metrics.StorageErrors.WithLabelValues(op).Inc()
	c.logger.Warn("session cache storage failure", "op", op, "key", key, "error", err)
}

func ageAt(at, now time.Time) time.Duration {
	if d := now.Sub(at); d > 0 {
		return d
	}
	return 0
}
