package service_test

import (
	"testing"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/aussiebroadwan/sessioncache/internal/session/sessiontest"
	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DeliversInRegistrationOrder(t *testing.T) {
	bus := service.NewEventBus(clockx.NewFake(sessiontest.Epoch), nil, nil)

	var order []string
	bus.Subscribe(func(domain.Event) { order = append(order, "first") })
	bus.Subscribe(func(domain.Event) { order = append(order, "second") })
	bus.Subscribe(func(domain.Event) { order = append(order, "third") })

	bus.Publish(domain.EventStateSynchronized, nil)
	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestEventBus_PanickingListenerIsIsolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)
	bus := service.NewEventBus(clockx.NewFake(sessiontest.Epoch), nil, metrics)

	bus.Subscribe(func(domain.Event) { panic("listener bug") })

	var got []domain.Event
	bus.Subscribe(func(e domain.Event) { got = append(got, e) })

	require.NotPanics(t, func() {
		bus.Publish(domain.EventStateCleared, domain.StateClearedPayload{Reason: "test"})
	})

	require.Len(t, got, 1)
	require.Equal(t, domain.EventStateCleared, got[0].Type)
	require.Equal(t, sessiontest.Epoch, got[0].OccurredAt)
	require.NotEmpty(t, got[0].ID)

	families, err := reg.Gather()
	require.NoError(t, err)
	var panics float64
	for _, mf := range families {
		if mf.GetName() == "sessioncache_sync_listener_panics_total" {
			panics = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	require.Equal(t, 1.0, panics)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := service.NewEventBus(clockx.NewFake(sessiontest.Epoch), nil, nil)

	calls := 0
	unsubscribe := bus.Subscribe(func(domain.Event) { calls++ })
	other := bus.Subscribe(func(domain.Event) {})
	require.Equal(t, 2, bus.ListenerCount())

	bus.Publish(domain.EventStateCached, nil)
	unsubscribe()
	unsubscribe()
	bus.Publish(domain.EventStateCached, nil)

	require.Equal(t, 1, calls)
	require.Equal(t, 1, bus.ListenerCount())

	other()
	require.Zero(t, bus.ListenerCount())
}

func TestEventBus_UnsubscribeDuringDelivery(t *testing.T) {
	bus := service.NewEventBus(clockx.NewFake(sessiontest.Epoch), nil, nil)

	var unsubscribe func()
	unsubscribe = bus.Subscribe(func(domain.Event) { unsubscribe() })

	second := 0
	bus.Subscribe(func(domain.Event) { second++ })

	bus.Publish(domain.EventStateCached, nil)
	require.Equal(t, 1, second, "removal during delivery does not skip later listeners")
	require.Equal(t, 1, bus.ListenerCount())
}

func TestEventBus_LastSync(t *testing.T) {
	clock := clockx.NewFake(sessiontest.Epoch)
	bus := service.NewEventBus(clock, nil, nil)

	bus.Publish(domain.EventStateCleared, nil)
	require.Nil(t, bus.LastSync())

	bus.Publish(domain.EventStateSynchronized, nil)
	require.Equal(t, sessiontest.Epoch, *bus.LastSync())
}
