package service_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/internal/session/sessiontest"
	"github.com/aussiebroadwan/sessioncache/internal/session/store"
	"github.com/stretchr/testify/require"
)

func TestTokenLedger_StoreRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	valid := sessiontest.TokenSet(t, "user-1", h.clock.Now().Add(time.Hour))

	tests := []struct {
		name   string
		mutate func(*domain.TokenSet)
		field  string
	}{
		{"empty access token", func(ts *domain.TokenSet) { ts.AccessToken = "" }, "access_token"},
		{"malformed refresh token", func(ts *domain.TokenSet) { ts.RefreshToken = "not-a-jwt" }, "refresh_token"},
		{"bad segment in id token", func(ts *domain.TokenSet) { ts.IDToken = "a.b+c.d" }, "id_token"},
		{"two segments", func(ts *domain.TokenSet) { ts.AccessToken = "a.b" }, "access_token"},
		{"already expired", func(ts *domain.TokenSet) { ts.ExpiresAt = h.clock.Now() }, "expires_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := valid
			tt.mutate(&ts)

			err := h.svc.Ledger().Store(ctx, ts)
			require.ErrorIs(t, err, service.ErrInvalidInput)

			var invalid *service.InvalidTokenSetError
			require.ErrorAs(t, err, &invalid)
			require.Equal(t, tt.field, invalid.Field)

			_, ok := h.svc.Ledger().Tokens(ctx)
			require.False(t, ok, "nothing may be partially stored")
		})
	}
}

func TestTokenLedger_StoreStampsStoredAt(t *testing.T) {
	h := newHarness(t)
	h.mustStoreTokens(t, "user-1", time.Hour)

	ts, ok := h.svc.Ledger().Tokens(t.Context())
	require.True(t, ok)
	require.Equal(t, h.clock.Now(), ts.StoredAt)
	require.True(t, ts.ExpiresAt.After(ts.StoredAt))
}

func TestTokenLedger_ValidAccessTokenBoundary(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	ledger := h.svc.Ledger()

	h.mustStoreTokens(t, "user-1", time.Hour)
	ts, _ := ledger.Tokens(ctx)
	boundary := ts.ExpiresAt.Add(-5 * time.Minute)

	h.clock.Set(boundary.Add(-time.Millisecond))
	token, ok := ledger.ValidAccessToken(ctx)
	require.True(t, ok)
	require.Equal(t, ts.AccessToken, token)
	require.False(t, ledger.IsExpired(ctx))

	h.clock.Set(boundary)
	_, ok = ledger.ValidAccessToken(ctx)
	require.False(t, ok)
	require.True(t, ledger.IsExpired(ctx))
}

func TestTokenLedger_NeedsRefreshAndIsExpiredAreDistinct(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	ledger := h.svc.Ledger()

	require.True(t, ledger.IsExpired(ctx), "no tokens counts as expired")
	require.False(t, ledger.NeedsRefresh(ctx), "no tokens cannot be refreshed")

	h.mustStoreTokens(t, "user-1", time.Hour)

	require.False(t, ledger.NeedsRefresh(ctx))

	h.clock.Advance(55 * time.Minute)
	require.True(t, ledger.NeedsRefresh(ctx))
	require.True(t, ledger.IsExpired(ctx))

	h.clock.Advance(5 * time.Minute)
	require.False(t, ledger.NeedsRefresh(ctx), "past expiry needs reauth, not refresh")
	require.True(t, ledger.IsExpired(ctx))
}

func TestTimings_Backoff(t *testing.T) {
	timings := service.DefaultTimings()

	tests := []struct {
		failures uint
		want     time.Duration
	}{
		{0, 0},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 8 * time.Minute},
		{5, 16 * time.Minute},
		{6, 30 * time.Minute},
		{7, 30 * time.Minute},
		{200, 30 * time.Minute},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, timings.Backoff(tt.failures), "failures=%d", tt.failures)
	}
}

func TestTokenLedger_BackoffAfterRepeatedFailures(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	ledger := h.svc.Ledger()
	h.mustStoreTokens(t, "user-1", time.Hour)

	for i := 0; i < 3; i++ {
		if i > 0 {
			h.clock.Advance(time.Second)
		}
		ledger.RecordRefreshFailure(ctx)
	}
	lastFailure := h.clock.Now()

	rec := ledger.FailureRecord(ctx)
	require.EqualValues(t, 3, rec.FailureCount)
	require.Equal(t, lastFailure, *rec.LastFailureAt)

	h.clock.Advance(time.Minute)
	require.False(t, ledger.CanAttemptRefresh(ctx))
	require.Equal(t, 3*time.Minute, ledger.RefreshRetryAfter(ctx))

	h.clock.Set(lastFailure.Add(4*time.Minute - time.Millisecond))
	require.False(t, ledger.CanAttemptRefresh(ctx))

	h.clock.Set(lastFailure.Add(4 * time.Minute))
	require.True(t, ledger.CanAttemptRefresh(ctx))
}

func TestTokenLedger_SuccessResetsBackoffAndStartsCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	ledger := h.svc.Ledger()
	h.mustStoreTokens(t, "user-1", time.Hour)

	ledger.RecordRefreshFailure(ctx)
	ledger.RecordRefreshFailure(ctx)

	ledger.RecordRefreshSuccess(ctx)
	require.True(t, ledger.FailureRecord(ctx).IsZero())

	require.False(t, ledger.CanAttemptRefresh(ctx))
	h.clock.Advance(30*time.Second - time.Millisecond)
	require.False(t, ledger.CanAttemptRefresh(ctx))
	h.clock.Advance(time.Millisecond)
	require.True(t, ledger.CanAttemptRefresh(ctx))

	ledger.RecordRefreshFailure(ctx)
	require.EqualValues(t, 1, ledger.FailureRecord(ctx).FailureCount, "count restarts from one")
}

func TestTokenLedger_StoreDoesNotResetBackoff(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	ledger := h.svc.Ledger()

	ledger.RecordRefreshFailure(ctx)
	h.mustStoreTokens(t, "user-1", time.Hour)

	require.EqualValues(t, 1, ledger.FailureRecord(ctx).FailureCount)
	require.False(t, ledger.CanAttemptRefresh(ctx))
}

func TestTokenLedger_PersistsAcrossRestart(t *testing.T) {
	first := newHarness(t)
	ctx := t.Context()
	first.mustStoreTokens(t, "user-1", time.Hour)
	first.svc.Ledger().RecordRefreshFailure(ctx)

	second := newHarness(t, sharing(first))

	want, _ := first.svc.Ledger().Tokens(ctx)
	got, ok := second.svc.Ledger().Tokens(ctx)
	require.True(t, ok)
	require.Equal(t, want.AccessToken, got.AccessToken)
	require.True(t, want.ExpiresAt.Equal(got.ExpiresAt))
	require.EqualValues(t, 1, second.svc.Ledger().FailureRecord(ctx).FailureCount)
}

func TestTokenLedger_StorageFailuresDegrade(t *testing.T) {
	t.Run("read failure yields nothing", func(t *testing.T) {
		first := newHarness(t)
		first.mustStoreTokens(t, "user-1", time.Hour)

		second := newHarness(t, sharing(first))
		second.kv.Fail(store.OpGet)

		_, ok := second.svc.Ledger().ValidAccessToken(t.Context())
		require.False(t, ok)

		second.kv.Heal()
		_, ok = second.svc.Ledger().ValidAccessToken(t.Context())
		require.True(t, ok, "a failed load is retried once storage recovers")
	})

	t.Run("write failure keeps memory", func(t *testing.T) {
		h := newHarness(t)
		h.kv.Fail(store.OpSet)

		h.mustStoreTokens(t, "user-1", time.Hour)
		_, ok := h.svc.Ledger().ValidAccessToken(t.Context())
		require.True(t, ok)

		h.svc.Ledger().RecordRefreshFailure(t.Context())
		require.EqualValues(t, 1, h.svc.Ledger().FailureRecord(t.Context()).FailureCount)
	})
}

func TestTokenLedger_Clear(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()
	ledger := h.svc.Ledger()

	h.mustStoreTokens(t, "user-1", time.Hour)
	ledger.RecordRefreshFailure(ctx)

	ledger.Clear(ctx)
	ledger.Clear(ctx)

	_, ok := ledger.Tokens(ctx)
	require.False(t, ok)
	require.True(t, ledger.FailureRecord(ctx).IsZero())

	_, err := h.kv.Get(ctx, store.KeyTokens)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = h.kv.Get(ctx, store.KeyRefreshFailures)
	require.ErrorIs(t, err, store.ErrNotFound)
}
