package http_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sessioncache/internal/session/domain"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

func TestEventsStream(t *testing.T) {
	f := newFixture(t)
	before := f.svc.Bus().ListenerCount()

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/v1/events"
	conn, _, err := websocket.Dial(t.Context(), url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.CloseNow() }()

	require.Eventually(t, func() bool {
		return f.svc.Bus().ListenerCount() == before+1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.svc.CacheAuthState(t.Context(), userState(f.clock.Now()), domain.CacheMetadata{Reason: "sign_in"}))
	require.NoError(t, f.svc.ClearCachedState(t.Context(), "sign_out"))

	var got []domain.EventType
	for range 2 {
		typ, data, err := conn.Read(t.Context())
		require.NoError(t, err)
		require.Equal(t, websocket.MessageText, typ)

		var ev struct {
			ID      string           `json:"id"`
			Type    domain.EventType `json:"type"`
			Payload json.RawMessage  `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(data, &ev))
		require.NotEmpty(t, ev.ID)
		got = append(got, ev.Type)

		if ev.Type == domain.EventStateCleared {
			require.JSONEq(t, `{"reason":"sign_out"}`, string(ev.Payload))
		}
	}
	require.Equal(t, []domain.EventType{domain.EventStateCached, domain.EventStateCleared}, got)

	_ = conn.Close(websocket.StatusNormalClosure, "done")
	require.Eventually(t, func() bool {
		return f.svc.Bus().ListenerCount() == before
	}, 2*time.Second, 5*time.Millisecond, "listener removed after disconnect")
}
