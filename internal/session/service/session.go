package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/internal/session/store"
	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/aussiebroadwan/sessioncache/pkg/slogx"
)

// Config configures a SessionService.
type Config struct {
	Timings Timings
	// PersistState mirrors cached snapshots and lifecycle records durably.
	PersistState bool
}

// Dependencies are the collaborators injected into a SessionService.
// Provider may be nil when the process only caches state pushed to it.
type Dependencies struct {
	KV       store.KV
	Clock    clockx.Clock
	Provider CredentialProvider
	Logger   *slog.Logger
	Metrics  *Metrics
}

// SessionService is the single entry point of the session engine. It owns
// the ledger, cache, bus, recovery coordinator, refresher and housekeeping.
// Every exported method recovers from panics and returns a safe default.
type SessionService struct {
	cfg     Config
	kv      store.KV
	clock   clockx.Clock
	logger  *slog.Logger
	metrics *Metrics

	bus          *EventBus
	ledger       *TokenLedger
	cache        *SessionCache
	coordinator  *RecoveryCoordinator
	refresher    *Refresher
	housekeeping *HousekeepingService
}

func NewSessionService(cfg Config, deps Dependencies) (*SessionService, error) {
	if deps.KV == nil {
		return nil, fmt.Errorf("%w: nil key-value store", ErrInvalidInput)
	}
	if err := cfg.Timings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if deps.Clock == nil {
		deps.Clock = clockx.New()
	}
	logger := slogx.OrDiscard(deps.Logger)
	metrics := orNewMetrics(deps.Metrics)

	s := &SessionService{
		cfg:     cfg,
		kv:      deps.KV,
		clock:   deps.Clock,
		logger:  logger,
		metrics: metrics,
	}

	s.bus = NewEventBus(deps.Clock, logger.With("component", "bus"), metrics)
	s.ledger = NewTokenLedger(deps.KV, deps.Clock, cfg.Timings, logger.With("component", "ledger"), metrics)
	s.cache = NewSessionCache(deps.KV, deps.Clock, s.bus, cfg.Timings, cfg.PersistState, logger.With("component", "cache"), metrics)
	s.coordinator = NewRecoveryCoordinator(s.cache, s.ledger, s.bus, deps.Clock, cfg.Timings, logger.With("component", "recovery"), metrics)
	s.housekeeping = NewHousekeepingService(s.cache, deps.Clock, logger.With("component", "housekeeping"), cfg.Timings.CleanupInterval)

	if deps.Provider != nil {
		s.refresher = NewRefresher(s.ledger, s.cache, s.bus, deps.Provider, deps.Clock, cfg.Timings, logger.With("component", "refresher"), metrics)
		s.coordinator.OnForceReauth(s.refresher.cancelTimer)
	}

	return s, nil
}

// Start launches the periodic cleanup.
func (s *SessionService) Start() {
	s.housekeeping.Start()
}

// Stop cancels every timer owned by the service. It does not close the store.
func (s *SessionService) Stop() {
	s.housekeeping.Stop()
	if s.refresher != nil {
		s.refresher.Stop()
	}
}

func (s *SessionService) Ledger() *TokenLedger               { return s.ledger }
func (s *SessionService) Cache() *SessionCache               { return s.cache }
func (s *SessionService) Bus() *EventBus                     { return s.bus }
func (s *SessionService) Housekeeping() *HousekeepingService { return s.housekeeping }
func (s *SessionService) Coordinator() *RecoveryCoordinator  { return s.coordinator }

// Refresher returns the refresher, or nil when no provider was configured.
func (s *SessionService) Refresher() *Refresher { return s.refresher }

// Ping checks the durable store.
func (s *SessionService) Ping(ctx context.Context) error { return s.kv.Ping(ctx) }

// CheckProvider reports whether a credential provider is configured and, if
// it can tell, whether it is reachable.
func (s *SessionService) CheckProvider(ctx context.Context) (configured bool, err error) {
	if s.refresher == nil {
		return false, nil
	}
	if rc, ok := s.refresher.provider.(ReadinessChecker); ok {
		return true, rc.Ready(ctx)
	}
	return true, nil
}

// GetCachedAuthState returns the cached snapshot, if any is valid.
func (s *SessionService) GetCachedAuthState(ctx context.Context, allowStale bool) (entry domain.CachedEntry, ok bool) {
	defer s.recoverBoundary("GetCachedAuthState", nil)
	return s.cache.Get(ctx, allowStale)
}

// CacheAuthState validates and caches a snapshot. A durable mirror failure
// is logged and not returned.
func (s *SessionService) CacheAuthState(ctx context.Context, state domain.CachedAuthState, meta domain.CacheMetadata) (err error) {
	defer s.recoverBoundary("CacheAuthState", &err)

	if err := validateAuthState(state); err != nil {
		return err
	}
	if state.LastCheckedAt.IsZero() {
		state.LastCheckedAt = s.clock.Now()
	}

	_ = s.cache.Put(ctx, state, meta)
	return nil
}

func validateAuthState(state domain.CachedAuthState) error {
	if state.IsAuthenticated && (state.UserID == nil || strings.TrimSpace(*state.UserID) == "") {
		return fmt.Errorf("%w: authenticated state requires a user id", ErrInvalidInput)
	}
	if state.Error != nil && state.Error.Code == "" {
		return fmt.Errorf("%w: error requires a code", ErrInvalidInput)
	}
	return nil
}

// ClearCachedState drops the cached snapshot. Durable removal failures are
// logged and not returned.
func (s *SessionService) ClearCachedState(ctx context.Context, reason string) (err error) {
	defer s.recoverBoundary("ClearCachedState", &err)

	if strings.TrimSpace(reason) == "" {
		reason = "manual"
	}
	_ = s.cache.Clear(ctx, reason)
	return nil
}

// HandleAppForegrounding runs foreground recovery.
func (s *SessionService) HandleAppForegrounding(ctx context.Context) (result domain.RecoveryResult) {
	defer s.recoverBoundary("HandleAppForegrounding", nil)
	defer func() {
		if result.Strategy == "" {
			result.Strategy = domain.StrategyUndetermined
		}
		if result.RecommendedAction == "" {
			result.RecommendedAction = domain.ActionValidateAuthentication
		}
	}()
	return s.coordinator.OnForeground(ctx)
}

// HandleAppBackgrounding records the transition to background.
func (s *SessionService) HandleAppBackgrounding(ctx context.Context) {
	defer s.recoverBoundary("HandleAppBackgrounding", nil)
	s.coordinator.OnBackground(ctx)
}

// HandleAppStateChange forwards a lifecycle notifier signal.
func (s *SessionService) HandleAppStateChange(ctx context.Context, signal string) (result *domain.RecoveryResult) {
	defer s.recoverBoundary("HandleAppStateChange", nil)
	return s.coordinator.HandleAppStateChange(ctx, signal)
}

// Recover runs foreground recovery and, when the strategy asks for it,
// validates the tokens through the refresher.
func (s *SessionService) Recover(ctx context.Context) (result domain.RecoveryResult) {
	defer s.recoverBoundary("Recover", nil)

	result = s.HandleAppForegrounding(ctx)
	if result.Strategy != domain.StrategyValidateAndRefresh || s.refresher == nil {
		return result
	}

	if _, err := s.refresher.EnsureValidToken(ctx); err != nil {
		result.Error = err.Error()
		if errors.Is(err, ErrNoTokens) {
			result.RecommendedAction = domain.ActionForceReauthentication
		}
		return result
	}

	result.AuthenticationValid = true

	// A token that was still valid skips the refresh, so the snapshot may
	// be older than CacheExpiry. Re-derive it from the validated tokens.
	entry, ok := s.cache.Get(ctx, false)
	if !ok && s.refresher.SyncCachedState(ctx, "recovery_validated") {
		entry, ok = s.cache.Get(ctx, false)
	}
	if ok {
		state := entry.State
		result.State = &state
		result.StateRecovered = true
		result.RecommendedAction = domain.ActionUseCachedState
	}
	return result
}

// AddSyncListener subscribes fn to sync events.
func (s *SessionService) AddSyncListener(fn Listener) (unsubscribe func()) {
	defer s.recoverBoundary("AddSyncListener", nil)
	if fn == nil {
		return func() {}
	}
	return s.bus.Subscribe(fn)
}

// CacheStatus summarises the cached snapshot.
type CacheStatus struct {
	Present         bool          `json:"present"`
	Source          domain.Source `json:"source,omitempty"`
	Age             string        `json:"age,omitempty"`
	IsAuthenticated bool          `json:"is_authenticated"`
	UserID          string        `json:"user_id,omitempty"`
}

// LedgerStatus summarises the token ledger without exposing tokens.
type LedgerStatus struct {
	HasTokens         bool       `json:"has_tokens"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	Expired           bool       `json:"expired"`
	NeedsRefresh      bool       `json:"needs_refresh"`
	CanAttemptRefresh bool       `json:"can_attempt_refresh"`
	RetryAfter        string     `json:"retry_after,omitempty"`
	FailureCount      uint       `json:"failure_count"`
	LastFailureAt     *time.Time `json:"last_failure_at,omitempty"`
	NextRefreshAt     *time.Time `json:"next_refresh_at,omitempty"`
}

// Status is the diagnostic view returned by GetServiceStatus.
type Status struct {
	Phase          domain.Phase      `json:"phase"`
	BackgroundedAt *time.Time        `json:"backgrounded_at,omitempty"`
	ForegroundedAt *time.Time        `json:"foregrounded_at,omitempty"`
	LastSyncAt     *time.Time        `json:"last_sync_at,omitempty"`
	Listeners      int               `json:"listeners"`
	PersistState   bool              `json:"persist_state"`
	Timings        Timings           `json:"-"`
	Config         map[string]string `json:"config"`
	Cache          CacheStatus       `json:"cache"`
	Ledger         LedgerStatus      `json:"ledger"`
	Housekeeping   HousekeepingStats `json:"housekeeping"`
}

// GetServiceStatus reports the service state.
func (s *SessionService) GetServiceStatus(ctx context.Context) (status Status) {
	defer s.recoverBoundary("GetServiceStatus", nil)

	phase, bg, fg := s.coordinator.Snapshot()
	status = Status{
		Phase:          phase,
		BackgroundedAt: bg,
		ForegroundedAt: fg,
		LastSyncAt:     s.bus.LastSync(),
		Listeners:      s.bus.ListenerCount(),
		PersistState:   s.cfg.PersistState,
		Timings:        s.cfg.Timings,
		Config:         timingsMap(s.cfg.Timings),
		Housekeeping:   s.housekeeping.Stats(),
	}

	if entry, ok := s.cache.Get(ctx, true); ok {
		status.Cache = CacheStatus{
			Present:         true,
			Source:          entry.Source,
			Age:             entry.Age.String(),
			IsAuthenticated: entry.State.IsAuthenticated,
		}
		if entry.State.UserID != nil {
			status.Cache.UserID = *entry.State.UserID
		}
	}

	ledger := LedgerStatus{
		Expired:           s.ledger.IsExpired(ctx),
		NeedsRefresh:      s.ledger.NeedsRefresh(ctx),
		CanAttemptRefresh: s.ledger.CanAttemptRefresh(ctx),
	}
	if ts, ok := s.ledger.Tokens(ctx); ok {
		ledger.HasTokens = true
		exp := ts.ExpiresAt
		ledger.ExpiresAt = &exp
	}
	if wait := s.ledger.RefreshRetryAfter(ctx); wait > 0 {
		ledger.RetryAfter = wait.String()
	}
	rec := s.ledger.FailureRecord(ctx)
	ledger.FailureCount = rec.FailureCount
	ledger.LastFailureAt = rec.LastFailureAt
	if s.refresher != nil {
		ledger.NextRefreshAt = s.refresher.NextRefreshAt()
	}
	status.Ledger = ledger

	return status
}

func timingsMap(t Timings) map[string]string {
	return map[string]string{
		"expiry_buffer":               t.ExpiryBuffer.String(),
		"refresh_cooldown":            t.RefreshCooldown.String(),
		"failed_refresh_cooldown":     t.FailedRefreshCooldown.String(),
		"max_failed_refresh_cooldown": t.MaxFailedRefreshCooldown.String(),
		"cache_expiry":                t.CacheExpiry.String(),
		"background_grace_period":     t.BackgroundGracePeriod.String(),
		"max_background_duration":     t.MaxBackgroundDuration.String(),
		"cleanup_interval":            t.CleanupInterval.String(),
	}
}

// recoverBoundary logs a recovered panic and, when errp is set, reports it
// as ErrUnexpected. Named results keep their zero value otherwise.
func (s *SessionService) recoverBoundary(op string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	s.logger.Error("recovered panic at service boundary", "op", op, "panic", r)
	if errp != nil {
		*errp = fmt.Errorf("%w in %s: %v", ErrUnexpected, op, r)
	}
}
