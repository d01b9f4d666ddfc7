package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/internal/session/store"
	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/aussiebroadwan/sessioncache/pkg/cryptox"
	"github.com/aussiebroadwan/sessioncache/pkg/jwtx"
	"github.com/aussiebroadwan/sessioncache/pkg/slogx"
)

// TokenLedger owns the token set and the refresh cooldown/backoff
// bookkeeping. Memory is authoritative inside the process; each record is
// lazily loaded from the durable store the first time it is needed and
// written through on every change. Storage failures are logged and degrade
// to "no data" on reads and to memory-only on writes.
type TokenLedger struct {
	kv      store.KV
	clock   clockx.Clock
	logger  *slog.Logger
	metrics *Metrics
	timings Timings

	mu sync.Mutex

	tokens       *domain.TokenSet
	tokensLoaded bool

	failures       domain.RefreshFailureRecord
	failuresLoaded bool

	lastRefreshAt     *time.Time
	lastRefreshLoaded bool
}

func NewTokenLedger(kv store.KV, clock clockx.Clock, timings Timings, logger *slog.Logger, metrics *Metrics) *TokenLedger {
	return &TokenLedger{
		kv:      kv,
		clock:   clock,
		logger:  slogx.OrDiscard(logger),
		metrics: orNewMetrics(metrics),
		timings: timings,
	}
}

// Store validates and persists a token set, stamping StoredAt. It does not
// touch the refresh backoff.
func (l *TokenLedger) Store(ctx context.Context, ts domain.TokenSet) error {
	if err := validateTokenSet(ts); err != nil {
		return err
	}

	now := l.clock.Now()
	if !ts.ExpiresAt.After(now) {
		return &InvalidTokenSetError{Field: "expires_at", Reason: "is not in the future"}
	}
	ts.StoredAt = now

	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens = &ts
	l.tokensLoaded = true

	if err := store.SetJSON(ctx, l.kv, store.KeyTokens, ts); err != nil {
		l.storageFailed("set", store.KeyTokens, err)
	}

	l.logger.Debug("tokens stored",
		"expires_at", ts.ExpiresAt,
		"refresh_fp", cryptox.FingerprintToken(ts.RefreshToken),
	)
	return nil
}

func validateTokenSet(ts domain.TokenSet) error {
	fields := []struct {
		name  string
		value string
	}{
		{"access_token", ts.AccessToken},
		{"refresh_token", ts.RefreshToken},
		{"id_token", ts.IDToken},
	}

	for _, f := range fields {
		if f.value == "" {
			return &InvalidTokenSetError{Field: f.name, Reason: "is empty"}
		}
		if !jwtx.IsWellFormed(f.value) {
			return &InvalidTokenSetError{Field: f.name, Reason: "is malformed"}
		}
	}
	return nil
}

// Tokens returns a copy of the current token set.
func (l *TokenLedger) Tokens(ctx context.Context) (domain.TokenSet, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loadTokensLocked(ctx)
	if l.tokens == nil {
		return domain.TokenSet{}, false
	}
	return *l.tokens, true
}

// ValidAccessToken returns the access token while now < expiresAt - buffer.
func (l *TokenLedger) ValidAccessToken(ctx context.Context) (string, bool) {
	ts, ok := l.Tokens(ctx)
	if !ok {
		return "", false
	}
	if l.clock.Now().Before(ts.ExpiresAt.Add(-l.timings.ExpiryBuffer)) {
		return ts.AccessToken, true
	}
	return "", false
}

// IsExpired reports now >= expiresAt - buffer. With no tokens it is true.
func (l *TokenLedger) IsExpired(ctx context.Context) bool {
	ts, ok := l.Tokens(ctx)
	if !ok {
		return true
	}
	return !l.clock.Now().Before(ts.ExpiresAt.Add(-l.timings.ExpiryBuffer))
}

// NeedsRefresh reports 0 < expiresAt - now <= buffer. A token that is
// already past expiresAt needs reauthentication, not a refresh.
func (l *TokenLedger) NeedsRefresh(ctx context.Context) bool {
	ts, ok := l.Tokens(ctx)
	if !ok {
		return false
	}
	remaining := ts.ExpiresAt.Sub(l.clock.Now())
	return remaining > 0 && remaining <= l.timings.ExpiryBuffer
}

// CanAttemptRefresh reports whether both the success cooldown and the
// failure backoff have elapsed.
func (l *TokenLedger) CanAttemptRefresh(ctx context.Context) bool {
	return l.RefreshRetryAfter(ctx) == 0
}

// RefreshRetryAfter returns how long until a refresh may be attempted, or 0.
func (l *TokenLedger) RefreshRetryAfter(ctx context.Context) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loadFailuresLocked(ctx)
	l.loadLastRefreshLocked(ctx)

	now := l.clock.Now()
	var wait time.Duration

	if l.lastRefreshAt != nil {
		if rem := l.lastRefreshAt.Add(l.timings.RefreshCooldown).Sub(now); rem > wait {
			wait = rem
		}
	}

	if l.failures.FailureCount > 0 && l.failures.LastFailureAt != nil {
		backoff := l.timings.Backoff(l.failures.FailureCount)
		if rem := l.failures.LastFailureAt.Add(backoff).Sub(now); rem > wait {
			wait = rem
		}
	}

	return wait
}

// RecordRefreshSuccess starts the success cooldown and resets the backoff.
func (l *TokenLedger) RecordRefreshSuccess(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.lastRefreshAt = &now
	l.lastRefreshLoaded = true
	l.failures = domain.RefreshFailureRecord{}
	l.failuresLoaded = true

	if err := store.SetJSON(ctx, l.kv, store.KeyLastRefreshAt, now); err != nil {
		l.storageFailed("set", store.KeyLastRefreshAt, err)
	}
	if err := l.kv.Remove(ctx, store.KeyRefreshFailures); err != nil {
		l.storageFailed("remove", store.KeyRefreshFailures, err)
	}
}

// RecordRefreshFailure increments the failure count and stamps the failure.
func (l *TokenLedger) RecordRefreshFailure(ctx context.Context) domain.RefreshFailureRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loadFailuresLocked(ctx)

	now := l.clock.Now()
	l.failures.FailureCount++
	l.failures.LastFailureAt = &now
	l.failuresLoaded = true

	if err := store.SetJSON(ctx, l.kv, store.KeyRefreshFailures, l.failures); err != nil {
		l.storageFailed("set", store.KeyRefreshFailures, err)
	}

	return copyFailures(l.failures)
}

// ResetFailures clears the backoff without starting a cooldown. Used when a
// fresh sign-in replaces the session.
func (l *TokenLedger) ResetFailures(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failures = domain.RefreshFailureRecord{}
	l.failuresLoaded = true
	if err := l.kv.Remove(ctx, store.KeyRefreshFailures); err != nil {
		l.storageFailed("remove", store.KeyRefreshFailures, err)
	}
}

// FailureRecord returns a copy of the current failure record.
func (l *TokenLedger) FailureRecord(ctx context.Context) domain.RefreshFailureRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.loadFailuresLocked(ctx)
	return copyFailures(l.failures)
}

// Clear erases the token set and the failure record. Observers never see
// one without the other because both are dropped under the same lock.
func (l *TokenLedger) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens = nil
	l.tokensLoaded = true
	l.failures = domain.RefreshFailureRecord{}
	l.failuresLoaded = true

	for _, key := range []string{store.KeyTokens, store.KeyRefreshFailures} {
		if err := l.kv.Remove(ctx, key); err != nil {
			l.storageFailed("remove", key, err)
		}
	}
}

func (l *TokenLedger) loadTokensLocked(ctx context.Context) {
	if l.tokensLoaded {
		return
	}

	var ts domain.TokenSet
	err := store.GetJSON(ctx, l.kv, store.KeyTokens, &ts)
	switch {
	case err == nil:
		if validateTokenSet(ts) != nil {
			l.logger.Warn("discarding invalid stored token set", "error", ErrCorrupt)
			l.tokensLoaded = true
			return
		}
		l.tokens = &ts
		l.tokensLoaded = true
	case errors.Is(err, store.ErrNotFound):
		l.tokensLoaded = true
	default:
		// Left unloaded so the next call retries.
		l.storageFailed("get", store.KeyTokens, err)
	}
}

func (l *TokenLedger) loadFailuresLocked(ctx context.Context) {
	if l.failuresLoaded {
		return
	}

	var rec domain.RefreshFailureRecord
	err := store.GetJSON(ctx, l.kv, store.KeyRefreshFailures, &rec)
	switch {
	case err == nil:
		if (rec.FailureCount == 0) != (rec.LastFailureAt == nil) {
			l.logger.Warn("discarding inconsistent refresh failure record", "error", ErrCorrupt)
			rec = domain.RefreshFailureRecord{}
		}
		l.failures = rec
		l.failuresLoaded = true
	case errors.Is(err, store.ErrNotFound):
		l.failuresLoaded = true
	default:
		l.storageFailed("get", store.KeyRefreshFailures, err)
	}
}

func (l *TokenLedger) loadLastRefreshLocked(ctx context.Context) {
	if l.lastRefreshLoaded {
		return
	}

	var at time.Time
	err := store.GetJSON(ctx, l.kv, store.KeyLastRefreshAt, &at)
	switch {
	case err == nil:
		l.lastRefreshAt = &at
		l.lastRefreshLoaded = true
	case errors.Is(err, store.ErrNotFound):
		l.lastRefreshLoaded = true
	default:
		l.storageFailed("get", store.KeyLastRefreshAt, err)
	}
}

func (l *TokenLedger) storageFailed(op, key string, err error) {
	l.metrics.StorageErrors.WithLabelValues(op).Inc()
	l.logger.Warn("token ledger storage failure", "op", op, "key", key, "error", err)
}

func copyFailures(r domain.RefreshFailureRecord) domain.RefreshFailureRecord {
	out := domain.RefreshFailureRecord{FailureCount: r.FailureCount}
	if r.LastFailureAt != nil {
		t := *r.LastFailureAt
		out.LastFailureAt = &t
	}
	return out
}
