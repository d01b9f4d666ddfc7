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
	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/aussiebroadwan/sessioncache/pkg/cryptox"
	"github.com/aussiebroadwan/sessioncache/pkg/jwtx"
	"github.com/aussiebroadwan/sessioncache/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CredentialProvider is the identity provider as seen by the session
// engine. Cancelling an in-flight call is the provider's job; the engine
// only records the outcome.
type CredentialProvider interface {
	SignIn(ctx context.Context, username, password string) (domain.TokenSet, error)
	RefreshTokens(ctx context.Context, refreshToken string) (domain.TokenSet, error)
	ConfirmSignUp(ctx context.Context, username, code string) error
	ForgotPassword(ctx context.Context, username string) error
}

// ReadinessChecker is implemented by providers that can report whether
// they are reachable.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// proactiveRefreshTimeout bounds a timer-driven refresh.
const proactiveRefreshTimeout = 30 * time.Second

// Refresher keeps the ledger supplied with fresh tokens. On-demand callers
// go through EnsureValidToken; a proactive timer refreshes at
// expiresAt - ExpiryBuffer.
type Refresher struct {
	ledger   *TokenLedger
	cache    *SessionCache
	bus      *EventBus
	provider CredentialProvider
	clock    clockx.Clock
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	timings  Timings

	// refreshMu serialises refreshes so concurrent callers share one.
	refreshMu sync.Mutex

	timerMu sync.Mutex
	timer   clockx.Timer
	timerAt *time.Time
	stopped bool
}

func NewRefresher(
	ledger *TokenLedger,
	cache *SessionCache,
	bus *EventBus,
	provider CredentialProvider,
	clock clockx.Clock,
	timings Timings,
	logger *slog.Logger,
	metrics *Metrics,
) *Refresher {
	return &Refresher{
		ledger:   ledger,
		cache:    cache,
		bus:      bus,
		provider: provider,
		clock:    clock,
		logger:   slogx.OrDiscard(logger),
		metrics:  orNewMetrics(metrics),
		tracer:   tracer(),
		timings:  timings,
	}
}

// EnsureValidToken returns a usable access token, refreshing first when the
// current one is inside the expiry buffer and the ledger allows it.
func (r *Refresher) EnsureValidToken(ctx context.Context) (string, error) {
	if token, ok := r.ledger.ValidAccessToken(ctx); ok {
		return token, nil
	}

	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if token, ok := r.ledger.ValidAccessToken(ctx); ok {
		return token, nil
	}

	ts, err := r.refreshLocked(ctx)
	if err != nil {
		return "", err
	}
	return ts.AccessToken, nil
}

// Refresh forces a refresh, subject to the cooldown and backoff.
func (r *Refresher) Refresh(ctx context.Context) (domain.TokenSet, error) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()
	return r.refreshLocked(ctx)
}

func (r *Refresher) refreshLocked(ctx context.Context) (domain.TokenSet, error) {
	ctx, span := r.tracer.Start(ctx, "session.refresh")
	defer span.End()

	current, ok := r.ledger.Tokens(ctx)
	if !ok {
		span.SetStatus(codes.Error, "no tokens")
		return domain.TokenSet{}, ErrNoTokens
	}

	if wait := r.ledger.RefreshRetryAfter(ctx); wait > 0 {
		r.metrics.Refreshes.WithLabelValues("backoff").Inc()
		span.SetAttributes(attribute.Int64("session.retry_after_ms", wait.Milliseconds()))
		return domain.TokenSet{}, &RefreshBackoffError{RetryAfter: wait}
	}

	fp := cryptox.FingerprintToken(current.RefreshToken)
	fresh, err := r.provider.RefreshTokens(ctx, current.RefreshToken)
	if err == nil {
		// Providers may omit tokens that did not rotate.
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = current.RefreshToken
		}
		if fresh.IDToken == "" {
			fresh.IDToken = current.IDToken
		}
		err = r.ledger.Store(ctx, fresh)
	}

	if err != nil {
		rec := r.ledger.RecordRefreshFailure(ctx)
		r.metrics.Refreshes.WithLabelValues("failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		r.logger.Warn("token refresh failed",
			"refresh_fp", fp,
			"failure_count", rec.FailureCount,
			"next_attempt_in", r.timings.Backoff(rec.FailureCount),
			"error", err,
		)
		return domain.TokenSet{}, &RefreshFailedError{Reason: err.Error(), Err: err}
	}

	r.ledger.RecordRefreshSuccess(ctx)
	r.metrics.Refreshes.WithLabelValues("success").Inc()

	stored, _ := r.ledger.Tokens(ctx)
	r.syncState(ctx, stored, "token_refresh")
	r.schedule(stored.ExpiresAt)

	r.logger.Info("token refreshed", "refresh_fp", fp, "expires_at", stored.ExpiresAt)
	return stored, nil
}

// SignIn authenticates against the provider and starts a new session.
func (r *Refresher) SignIn(ctx context.Context, username, password string) error {
	ctx, span := r.tracer.Start(ctx, "session.sign_in")
	defer span.End()

	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	ts, err := r.provider.SignIn(ctx, username, password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign in failed")
		return fmt.Errorf("sign in: %w", err)
	}

	if err := r.ledger.Store(ctx, ts); err != nil {
		return err
	}
	r.ledger.ResetFailures(ctx)

	stored, _ := r.ledger.Tokens(ctx)
	r.syncState(ctx, stored, "sign_in")
	r.schedule(stored.ExpiresAt)

	r.logger.Info("signed in", "refresh_fp", cryptox.FingerprintToken(stored.RefreshToken))
	return nil
}

// SignOut drops the tokens and the cached snapshot.
func (r *Refresher) SignOut(ctx context.Context) error {
	r.cancelTimer()
	r.ledger.Clear(ctx)
	return r.cache.Clear(ctx, "sign_out")
}

func (r *Refresher) ConfirmSignUp(ctx context.Context, username, code string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: username and code are required", ErrInvalidInput)
	}
	if err := r.provider.ConfirmSignUp(ctx, username, code); err != nil {
		return fmt.Errorf("confirm sign up: %w", err)
	}
	return nil
}

func (r *Refresher) ForgotPassword(ctx context.Context, username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if err := r.provider.ForgotPassword(ctx, username); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// SyncCachedState re-caches the authenticated state derived from the
// current tokens. It reports false when the ledger holds none.
func (r *Refresher) SyncCachedState(ctx context.Context, reason string) bool {
	ts, ok := r.ledger.Tokens(ctx)
	if !ok {
		return false
	}
	r.syncState(ctx, ts, reason)
	return true
}

// syncState caches the authenticated state derived from the ID token and
// publishes state_synchronized.
func (r *Refresher) syncState(ctx context.Context, ts domain.TokenSet, reason string) {
	now := r.clock.Now()

	userID := jwtx.Subject(ts.IDToken)
	if userID == "" {
		userID = jwtx.Subject(ts.AccessToken)
	}

	info := &domain.SessionInfo{StartedAt: now, LastActivityAt: now}
	if prev, ok := r.cache.Get(ctx, true); ok && prev.State.SessionInfo != nil && prev.State.UserID != nil && *prev.State.UserID == userID {
		info.StartedAt = prev.State.SessionInfo.StartedAt
	}

	state := domain.CachedAuthState{
		IsAuthenticated: true,
		LastCheckedAt:   now,
		SessionInfo:     info,
	}
	if userID != "" {
		state.UserID = &userID
	}

	_ = r.cache.Put(ctx, state, domain.CacheMetadata{Reason: reason})
	r.bus.Publish(domain.EventStateSynchronized, state)
}

// schedule arms the proactive refresh timer for expiresAt - ExpiryBuffer.
// Nothing is armed when that moment has already passed.
func (r *Refresher) schedule(expiresAt time.Time) {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()

	if r.stopped {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
		r.timerAt = nil
	}

	at := expiresAt.Add(-r.timings.ExpiryBuffer)
	d := at.Sub(r.clock.Now())
	if d <= 0 {
		return
	}

	r.timerAt = &at
	r.timer = r.clock.AfterFunc(d, r.proactiveRefresh)
}

func (r *Refresher) proactiveRefresh() {
	r.timerMu.Lock()
	r.timer = nil
	r.timerAt = nil
	stopped := r.stopped
	r.timerMu.Unlock()

	if stopped {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), proactiveRefreshTimeout)
	defer cancel()

	if _, err := r.Refresh(ctx); err != nil {
		var backoff *RefreshBackoffError
		if errors.As(err, &backoff) {
			r.logger.Debug("proactive refresh deferred", "retry_after", backoff.RetryAfter)
			return
		}
		r.logger.Warn("proactive refresh failed", "error", err)
	}
}

// NextRefreshAt reports when the proactive timer fires, if armed.
func (r *Refresher) NextRefreshAt() *time.Time {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()
	return copyTime(r.timerAt)
}

func (r *Refresher) cancelTimer() {
	r.timerMu.Lock()
	defer r.timerMu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = nil
	r.timerAt = nil
}

// Stop cancels the proactive timer for good.
func (r *Refresher) Stop() {
	r.timerMu.Lock()
	r.stopped = true
	r.timerMu.Unlock()
	r.cancelTimer()
}
