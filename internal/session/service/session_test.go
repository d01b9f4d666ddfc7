package service_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/internal/session/sessiontest"
	"github.com/aussiebroadwan/sessioncache/internal/session/store"
	"github.com/aussiebroadwan/sessioncache/internal/session/store/drivers/memory"
	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/stretchr/testify/require"
)

func TestNewSessionService_Validation(t *testing.T) {
	_, err := service.NewSessionService(service.Config{Timings: service.DefaultTimings()}, service.Dependencies{})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	bad := service.DefaultTimings()
	bad.MaxBackgroundDuration = bad.BackgroundGracePeriod
	_, err = service.NewSessionService(service.Config{Timings: bad}, service.Dependencies{KV: memory.NewStore()})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	svc, err := service.NewSessionService(service.Config{Timings: service.DefaultTimings()}, service.Dependencies{KV: memory.NewStore()})
	require.NoError(t, err)
	require.Nil(t, svc.Refresher(), "no provider, no refresher")
}

func TestSessionService_CacheAuthStateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	err := h.svc.CacheAuthState(ctx, domain.CachedAuthState{IsAuthenticated: true}, domain.CacheMetadata{})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	err = h.svc.CacheAuthState(ctx, domain.CachedAuthState{Error: &domain.AuthError{Message: "boom"}}, domain.CacheMetadata{})
	require.ErrorIs(t, err, service.ErrInvalidInput)

	_, ok := h.svc.GetCachedAuthState(ctx, true)
	require.False(t, ok, "rejected input is never stored")

	signedOut := domain.CachedAuthState{
		Error: &domain.AuthError{Message: "session expired", Code: "session_expired", Recoverable: true},
	}
	require.NoError(t, h.svc.CacheAuthState(ctx, signedOut, domain.CacheMetadata{}))

	entry, ok := h.svc.GetCachedAuthState(ctx, false)
	require.True(t, ok)
	require.Equal(t, h.clock.Now(), entry.State.LastCheckedAt, "missing check time is stamped")
}

func TestSessionService_CacheAuthStateSurvivesStorageFailure(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	h.kv.Fail(store.OpSet, store.OpRemove, store.OpKeys)

	require.NoError(t, h.svc.CacheAuthState(ctx, authenticatedState(h.clock.Now()), domain.CacheMetadata{}))
	require.NoError(t, h.svc.ClearCachedState(ctx, "test"))
	require.NoError(t, h.svc.ClearCachedState(ctx, ""))

	_, ok := h.svc.GetCachedAuthState(ctx, true)
	require.False(t, ok)
}

func TestSessionService_BoundaryRecoversPanics(t *testing.T) {
	first := newHarness(t)
	ctx := t.Context()
	require.NoError(t, first.svc.CacheAuthState(ctx, authenticatedState(first.clock.Now()), domain.CacheMetadata{}))

	second := newHarness(t, sharing(first))
	second.kv.Panic(store.OpGet, store.OpKeys)

	require.NotPanics(t, func() {
		_, ok := second.svc.GetCachedAuthState(ctx, false)
		require.False(t, ok)
	})

	var err error
	require.NotPanics(t, func() { err = second.svc.ClearCachedState(ctx, "test") })
	require.ErrorIs(t, err, service.ErrUnexpected)

	require.NotPanics(t, func() {
		result := second.svc.HandleAppForegrounding(ctx)
		require.Equal(t, domain.ActionValidateAuthentication, result.RecommendedAction)
	})
}

func TestSessionService_Recover(t *testing.T) {
	t.Run("validate_and_refresh refreshes tokens", func(t *testing.T) {
		h := newHarness(t)
		h.mustStoreTokens(t, "user-1", time.Hour)
		h.provider.Succeed(t, "user-1", h.clock.Now, time.Hour)

		require.NoError(t, h.svc.CacheAuthState(t.Context(), authenticatedState(h.clock.Now()), domain.CacheMetadata{}))
		h.svc.HandleAppBackgrounding(t.Context())
		h.clock.Advance(2 * time.Hour)

		result := h.svc.Recover(t.Context())
		require.Equal(t, domain.StrategyValidateAndRefresh, result.Strategy)
		require.True(t, result.AuthenticationValid)
		require.True(t, result.StateRecovered)
		require.Equal(t, domain.ActionUseCachedState, result.RecommendedAction)
		require.Empty(t, result.Error)
		require.Equal(t, 1, h.provider.Refreshes())
	})

	t.Run("still valid token re-caches the state", func(t *testing.T) {
		h := newHarness(t)
		h.mustStoreTokens(t, "user-1", 6*time.Hour)

		require.NoError(t, h.svc.CacheAuthState(t.Context(), authenticatedState(h.clock.Now()), domain.CacheMetadata{}))
		h.svc.HandleAppBackgrounding(t.Context())
		h.clock.Advance(2 * time.Hour)

		result := h.svc.Recover(t.Context())
		require.Equal(t, domain.StrategyValidateAndRefresh, result.Strategy)
		require.Zero(t, h.provider.Refreshes())
		require.True(t, result.AuthenticationValid)
		require.True(t, result.StateRecovered)
		require.Equal(t, domain.ActionUseCachedState, result.RecommendedAction)
		require.NotNil(t, result.State)
		require.Equal(t, "user-1", *result.State.UserID)

		entry, ok := h.svc.GetCachedAuthState(t.Context(), false)
		require.True(t, ok)
		require.Equal(t, "recovery_validated", entry.Metadata.Reason)
		require.Zero(t, entry.Age)
	})

	t.Run("refresh failure keeps the recommendation", func(t *testing.T) {
		h := newHarness(t)
		h.mustStoreTokens(t, "user-1", time.Hour)

		h.svc.HandleAppBackgrounding(t.Context())
		h.clock.Advance(2 * time.Hour)

		result := h.svc.Recover(t.Context())
		require.False(t, result.AuthenticationValid)
		require.Equal(t, domain.ActionValidateAndRefresh, result.RecommendedAction)
		require.NotEmpty(t, result.Error)
	})

	t.Run("no tokens forces reauthentication", func(t *testing.T) {
		h := newHarness(t)
		h.svc.HandleAppBackgrounding(t.Context())
		h.clock.Advance(2 * time.Hour)

		result := h.svc.Recover(t.Context())
		require.Equal(t, domain.ActionForceReauthentication, result.RecommendedAction)
	})

	t.Run("use_cache needs no refresh", func(t *testing.T) {
		h := newHarness(t)
		h.mustStoreTokens(t, "user-1", time.Hour)
		require.NoError(t, h.svc.CacheAuthState(t.Context(), authenticatedState(h.clock.Now()), domain.CacheMetadata{}))
		h.svc.HandleAppBackgrounding(t.Context())
		h.clock.Advance(time.Minute)

		result := h.svc.Recover(t.Context())
		require.Equal(t, domain.StrategyUseCache, result.Strategy)
		require.Zero(t, h.provider.Refreshes())
	})
}

func TestSessionService_GetServiceStatus(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	status := h.svc.GetServiceStatus(ctx)
	require.Equal(t, domain.PhaseActive, status.Phase)
	require.Equal(t, 1, status.Listeners)
	require.True(t, status.PersistState)
	require.False(t, status.Cache.Present)
	require.False(t, status.Ledger.HasTokens)
	require.True(t, status.Ledger.Expired)
	require.Equal(t, "5m0s", status.Config["expiry_buffer"])
	require.Nil(t, status.LastSyncAt)

	h.mustStoreTokens(t, "user-1", time.Hour)
	require.NoError(t, h.svc.CacheAuthState(ctx, authenticatedState(h.clock.Now()), domain.CacheMetadata{}))
	h.svc.Ledger().RecordRefreshFailure(ctx)
	h.svc.HandleAppBackgrounding(ctx)

	status = h.svc.GetServiceStatus(ctx)
	require.Equal(t, domain.PhaseBackground, status.Phase)
	require.NotNil(t, status.BackgroundedAt)
	require.NotNil(t, status.LastSyncAt)
	require.True(t, status.Cache.Present)
	require.Equal(t, "user-1", status.Cache.UserID)
	require.True(t, status.Ledger.HasTokens)
	require.False(t, status.Ledger.Expired)
	require.False(t, status.Ledger.CanAttemptRefresh)
	require.Equal(t, "1m0s", status.Ledger.RetryAfter)
	require.EqualValues(t, 1, status.Ledger.FailureCount)
}

func TestSessionService_AddSyncListenerNil(t *testing.T) {
	h := newHarness(t)
	unsubscribe := h.svc.AddSyncListener(nil)
	require.NotNil(t, unsubscribe)
	unsubscribe()
	require.Equal(t, 1, h.svc.Bus().ListenerCount())
}

func TestHousekeepingService(t *testing.T) {
	clock := clockx.NewFake(sessiontest.Epoch)
	svc, err := service.NewSessionService(
		service.Config{Timings: service.DefaultTimings(), PersistState: true},
		service.Dependencies{KV: memory.NewStore(), Clock: clock},
	)
	require.NoError(t, err)

	hk := svc.Housekeeping()
	require.NoError(t, svc.CacheAuthState(t.Context(), authenticatedState(clock.Now()), domain.CacheMetadata{}))

	svc.Start()
	svc.Start()
	require.Eventually(t, func() bool { return hk.Stats().Runs >= 1 }, time.Second, time.Millisecond)
	require.True(t, hk.Stats().Running)
	require.Equal(t, "1h0m0s", hk.Stats().Interval)

	clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return hk.Stats().Runs >= 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return hk.Stats().TotalRemoved == 2 }, time.Second, time.Millisecond)

	_, ok := svc.GetCachedAuthState(t.Context(), true)
	require.False(t, ok)

	svc.Stop()
	svc.Stop()
	require.False(t, hk.Stats().Running)
	require.Zero(t, clock.Pending())
}

func TestHousekeepingService_RunOnce(t *testing.T) {
	h := newHarness(t)
	require.Zero(t, h.svc.Housekeeping().RunOnce(t.Context()))

	stats := h.svc.Housekeeping().Stats()
	require.Equal(t, 1, stats.Runs)
	require.Equal(t, sessiontest.Epoch, *stats.LastRunAt)
	require.False(t, stats.Running)
}
