package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/pkg/clockx"
	"github.com/aussiebroadwan/sessioncache/pkg/idx"
	"github.com/aussiebroadwan/sessioncache/pkg/slogx"
)

// Listener receives sync events. It runs on the publisher's goroutine.
type Listener func(domain.Event)

type subscription struct {
	id uint64
	fn Listener
}

// EventBus delivers sync events synchronously to every listener in
// registration order. A panicking listener is logged and skipped; it never
// reaches the publisher or blocks later listeners.
type EventBus struct {
	clock   clockx.Clock
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.RWMutex
	subs     []subscription
	nextID   uint64
	lastSync *time.Time
}

func NewEventBus(clock clockx.Clock, logger *slog.Logger, metrics *Metrics) *EventBus {
	return &EventBus{
		clock:   clock,
		logger:  slogx.OrDiscard(logger),
		metrics: orNewMetrics(metrics),
	}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *EventBus) Subscribe(fn Listener) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.metrics.Listeners.Set(float64(len(b.subs)))
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *EventBus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			break
		}
	}
	b.metrics.Listeners.Set(float64(len(b.subs)))
}

// Publish delivers an event to every listener registered at the time of the
// call and returns once all of them have run.
func (b *EventBus) Publish(typ domain.EventType, payload any) {
	now := b.clock.Now()
	event := domain.Event{
		ID:         idx.NewAt(now).String(),
		Type:       typ,
		Payload:    payload,
		OccurredAt: now,
	}

	b.mu.Lock()
	if typ == domain.EventStateCached || typ == domain.EventStateSynchronized {
		b.lastSync = &now
	}
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(s, event)
	}
}

func (b *EventBus) deliver(s subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.ListenerPanics.Inc()
			b.logger.Error("sync listener panicked",
				"listener", s.id,
				"event", event.Type,
				"panic", r,
			)
		}
	}()
	s.fn(event)
}

// ListenerCount reports how many listeners are registered.
func (b *EventBus) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// LastSync is when state was last cached or synchronized.
func (b *EventBus) LastSync() *time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.lastSync == nil {
		return nil
	}
	t := *b.lastSync
	return &t
}
