package service_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/internal/session/sessiontest"
	"github.com/aussiebroadwan/sessioncache/internal/session/store"
	"github.com/aussiebroadwan/sessioncache/internal/session/store/drivers/memory"
	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/stretchr/testify/require"
)

type harness struct {
	svc      *service.SessionService
	clock    *clockx.Fake
	kv       *store.Faulty
	provider *sessiontest.Provider
	events   *sessiontest.Recorder
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	persist bool
	kv      *store.Faulty
	clock   *clockx.Fake
}

func withoutPersistence() harnessOption { return func(c *harnessConfig) { c.persist = false } }

// sharing reuses another harness's store and clock, simulating a restart.
func sharing(h *harness) harnessOption {
	return func(c *harnessConfig) {
		c.kv = h.kv
		c.clock = h.clock
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{persist: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.kv == nil {
		cfg.kv = store.NewFaulty(memory.NewStore())
	}
	if cfg.clock == nil {
		cfg.clock = clockx.NewFake(sessiontest.Epoch)
	}

	provider := &sessiontest.Provider{}
	svc, err := service.NewSessionService(
		service.Config{Timings: service.DefaultTimings(), PersistState: cfg.persist},
		service.Dependencies{KV: cfg.kv, Clock: cfg.clock, Provider: provider},
	)
	require.NoError(t, err)
	t.Cleanup(svc.Stop)

	rec := &sessiontest.Recorder{}
	svc.AddSyncListener(rec.Listen)

	return &harness{svc: svc, clock: cfg.clock, kv: cfg.kv, provider: provider, events: rec}
}

func strPtr(s string) *string { return &s }

// mustStoreTokens stores a token set for subject that expires after ttl.
func (h *harness) mustStoreTokens(t *testing.T, subject string, ttl time.Duration) {
	t.Helper()
	ts := sessiontest.TokenSet(t, subject, h.clock.Now().Add(ttl))
	require.NoError(t, h.svc.Ledger().Store(t.Context(), ts))
}
