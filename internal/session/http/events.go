package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/aussiebroadwan/sessioncache/internal/session/service"
	"github.com/coder/websocket"
)

const (
	defaultEventQueue   = 64
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
)

// EventsHandler streams sync bus events to a websocket client as JSON text
// frames. Client frames are discarded. A client that falls behind by more
// than QueueSize events is disconnected.
type EventsHandler struct {
	Service        *service.SessionService
	Logger         *slog.Logger
	OriginPatterns []string

	QueueSize    int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// ServeHTTP godoc
//
//	@Summary		Stream sync events
//	@Description	Upgrades to a websocket and sends every state_cached, state_cleared,
//	@Description	state_synchronized and app_foregrounded event as a JSON text frame.
//	@Tags			Events
//	@Success		101
//	@Router			/v1/events [get].
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.OriginPatterns,
	})
	if err != nil {
		h.Logger.Info("events.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// Reads are discarded; ctx ends when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	queue := make(chan domain.Event, orInt(h.QueueSize, defaultEventQueue))
	overflow := make(chan struct{})
	var overflowOnce sync.Once

	unsubscribe := h.Service.AddSyncListener(func(ev domain.Event) {
		select {
		case queue <- ev:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	})
	defer unsubscribe()

	h.Logger.Info("events.subscribed", "remote", r.RemoteAddr)

	ping := time.NewTicker(orDuration(h.PingInterval, defaultPingInterval))
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.Logger.Info("events.closed", "remote", r.RemoteAddr)
			return
		case <-overflow:
			h.Logger.Warn("events.overflow", "remote", r.RemoteAddr)
			_ = conn.Close(websocket.StatusPolicyViolation, "slow consumer")
			return
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, orDuration(h.WriteTimeout, defaultWriteTimeout))
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				h.Logger.Info("events.ping.fail", "err", err)
				return
			}
		case ev := <-queue:
			if err := h.write(ctx, conn, ev); err != nil {
				h.Logger.Info("events.write.fail", "close_status", websocket.CloseStatus(err), "err", err)
				return
			}
		}
	}
}

func (h *EventsHandler) write(parent context.Context, conn *websocket.Conn, ev domain.Event) error {
	ctx, cancel := context.WithTimeout(parent, orDuration(h.WriteTimeout, defaultWriteTimeout))
	defer cancel()

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
