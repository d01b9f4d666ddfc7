package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/aussiebroadwan/sessioncache/pkg/slogx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RecoveryCoordinator reacts to foreground/background transitions and picks
// how much of the cached session to trust when the process comes back.
// It never retries anything on its own.
type RecoveryCoordinator struct {
	cache   *SessionCache
	ledger  *TokenLedger
	bus     *EventBus
	clock   clockx.Clock
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	timings Timings

	// onForceReauth runs after a forced reauthentication cleared the session.
	onForceReauth func()

	mu             sync.Mutex
	phase          domain.Phase
	backgroundedAt *time.Time
	foregroundedAt *time.Time
}

func NewRecoveryCoordinator(
	cache *SessionCache,
	ledger *TokenLedger,
	bus *EventBus,
	clock clockx.Clock,
	timings Timings,
	logger *slog.Logger,
	metrics *Metrics,
) *RecoveryCoordinator {
	return &RecoveryCoordinator{
		cache:   cache,
		ledger:  ledger,
		bus:     bus,
		clock:   clock,
		logger:  slogx.OrDiscard(logger),
		metrics: orNewMetrics(metrics),
		tracer:  tracer(),
		timings: timings,
		phase:   domain.PhaseActive,
	}
}

// OnForceReauth registers fn to run whenever force_reauth tears the session
// down. It must be set before the coordinator is used.
func (c *RecoveryCoordinator) OnForceReauth(fn func()) {
	c.onForceReauth = fn
}

// ChooseStrategy maps a background duration onto a recovery strategy.
func (t Timings) ChooseStrategy(d time.Duration) domain.RecoveryStrategy {
	switch {
	case d <= t.BackgroundGracePeriod:
		return domain.StrategyUseCache
	case d <= t.MaxBackgroundDuration:
		return domain.StrategyValidateAndRefresh
	default:
		return domain.StrategyForceReauth
	}
}

// OnBackground records the background time, re-persists the snapshot tagged
// with it and writes the lifecycle breadcrumb. A repeated background signal
// keeps the original timestamp. Durable failures are logged only.
func (c *RecoveryCoordinator) OnBackground(ctx context.Context) {
	ctx, span := c.tracer.Start(ctx, "session.on_background")
	defer span.End()

	now := c.clock.Now()

	c.mu.Lock()
	if c.phase == domain.PhaseBackground && c.backgroundedAt != nil {
		since := *c.backgroundedAt
		c.mu.Unlock()
		c.logger.Debug("already backgrounded", "backgrounded_at", since)
		return
	}
	c.phase = domain.PhaseBackground
	c.backgroundedAt = &now
	rec := domain.LifecycleRecord{
		Phase:          domain.PhaseBackground,
		BackgroundedAt: &now,
		ForegroundedAt: copyTime(c.foregroundedAt),
		UpdatedAt:      now,
	}
	c.mu.Unlock()

	hadSnapshot := c.cache.MarkBackgrounded(ctx, now)
	_ = c.cache.SaveLifecycle(ctx, rec)

	span.SetAttributes(attribute.Bool("session.had_snapshot", hadSnapshot))
	c.logger.Info("app backgrounded", "had_snapshot", hadSnapshot)
}

// OnForeground computes how long the process was backgrounded, applies the
// matching strategy and publishes the result as app_foregrounded. When the
// in-memory background time is gone it falls back to the durable
// breadcrumb; with neither, it recommends validate_authentication.
func (c *RecoveryCoordinator) OnForeground(ctx context.Context) domain.RecoveryResult {
	ctx, span := c.tracer.Start(ctx, "session.on_foreground")
	defer span.End()

	now := c.clock.Now()

	c.mu.Lock()
	bg := copyTime(c.backgroundedAt)
	c.mu.Unlock()

	if bg == nil {
		if rec, ok := c.cache.Lifecycle(ctx); ok && rec.Phase == domain.PhaseBackground && rec.BackgroundedAt != nil {
			bg = copyTime(rec.BackgroundedAt)
			c.logger.Info("background time recovered from lifecycle record", "backgrounded_at", *bg)
		}
	}

	if bg == nil {
		c.markForegrounded(ctx, now)
		result := domain.RecoveryResult{
			Strategy:          domain.StrategyUndetermined,
			RecommendedAction: domain.ActionValidateAuthentication,
		}
		c.logger.Warn("foregrounded without a background timestamp")
		c.finish(span, result)
		return result
	}

	d := ageAt(*bg, now)
	strategy := c.timings.ChooseStrategy(d)
	result := domain.RecoveryResult{Strategy: strategy, BackgroundDuration: d}

	switch strategy {
	case domain.StrategyUseCache:
		entry, ok := c.cache.Get(ctx, true)
		if ok {
			state := entry.State
			result.StateRecovered = true
			result.AuthenticationValid = state.IsAuthenticated
			result.RecommendedAction = domain.ActionUseCachedState
			result.State = &state
			c.bus.Publish(domain.EventStateSynchronized, entry)
		} else {
			result.RecommendedAction = domain.ActionValidateAuthentication
		}

	case domain.StrategyValidateAndRefresh:
		result.RecommendedAction = domain.ActionValidateAndRefresh

	case domain.StrategyForceReauth:
		_ = c.cache.Clear(ctx, "background_timeout")
		c.ledger.Clear(ctx)
		if c.onForceReauth != nil {
			c.onForceReauth()
		}
		result.RecommendedAction = domain.ActionForceReauthentication
	}

	c.markForegrounded(ctx, now)
	c.finish(span, result)
	return result
}

func (c *RecoveryCoordinator) markForegrounded(ctx context.Context, now time.Time) {
	c.mu.Lock()
	c.phase = domain.PhaseActive
	c.backgroundedAt = nil
	c.foregroundedAt = &now
	c.mu.Unlock()

	_ = c.cache.SaveLifecycle(ctx, domain.LifecycleRecord{
		Phase:          domain.PhaseActive,
		ForegroundedAt: &now,
		UpdatedAt:      now,
	})
}

func (c *RecoveryCoordinator) finish(span trace.Span, result domain.RecoveryResult) {
	strategy := string(result.Strategy)
	c.metrics.Recoveries.WithLabelValues(strategy).Inc()

	span.SetAttributes(
		attribute.String("session.strategy", strategy),
		attribute.Int64("session.background_ms", result.BackgroundDuration.Milliseconds()),
		attribute.Bool("session.state_recovered", result.StateRecovered),
		attribute.String("session.recommended_action", string(result.RecommendedAction)),
	)

	c.logger.Info("app foregrounded",
		"strategy", strategy,
		"background_duration", result.BackgroundDuration,
		"state_recovered", result.StateRecovered,
		"recommended_action", result.RecommendedAction,
	)
	c.bus.Publish(domain.EventAppForegrounded, result)
}

// HandleAppStateChange maps a lifecycle notifier signal onto the
// coordinator. Only "active" produces a recovery result; "inactive" is
// ignored and unknown signals fail soft with validate_authentication.
func (c *RecoveryCoordinator) HandleAppStateChange(ctx context.Context, signal string) *domain.RecoveryResult {
	state, ok := domain.ParseAppState(signal)
	if !ok {
		c.logger.Warn("unknown lifecycle signal", "signal", signal)
		return &domain.RecoveryResult{
			Strategy:          domain.StrategyUndetermined,
			RecommendedAction: domain.ActionValidateAuthentication,
			Error:             "unknown lifecycle signal: " + signal,
		}
	}

	switch state {
	case domain.AppStateActive:
		result := c.OnForeground(ctx)
		return &result
	case domain.AppStateBackground:
		c.OnBackground(ctx)
	}
	return nil
}

// Snapshot reports the lifecycle phase and timestamps.
func (c *RecoveryCoordinator) Snapshot() (phase domain.Phase, backgroundedAt, foregroundedAt *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase, copyTime(c.backgroundedAt), copyTime(c.foregroundedAt)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
