package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jakecourtright/HayFlow/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T, origins []string) (*realtime.Hub, *httptest.Server) {
	t.Helper()
	hub := realtime.NewHub(origins, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("org"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, org string, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?org=" + org
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_PublishesToOwnOrgOnly(t *testing.T) {
	hub, srv := startHub(t, nil)

	a := dial(t, srv, "org_a", nil)
	b := dial(t, srv, "org_b", nil)
	require.Eventually(t, func() bool {
		return hub.ClientCount("org_a") == 1 && hub.ClientCount("org_b") == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Publish("org_a", realtime.EventTicketCreated, map[string]int{"number": 7})

	var evt realtime.Event
	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, a.ReadJSON(&evt))
	assert.Equal(t, realtime.EventTicketCreated, evt.Type)
	assert.False(t, evt.SentAt.IsZero())

	require.NoError(t, b.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := b.ReadMessage()
	assert.Error(t, err)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv := startHub(t, nil)

	conn := dial(t, srv, "org_a", nil)
	require.Eventually(t, func() bool { return hub.ClientCount("org_a") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount("org_a") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsUnknownOrigin(t *testing.T) {
	_, srv := startHub(t, []string{"https://app.hayflow.io"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?org=org_a"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	dial(t, srv, "org_a", http.Header{"Origin": []string{"https://app.hayflow.io"}})
}

func TestHub_NilIsSafe(t *testing.T) {
	var hub *realtime.Hub
	assert.NotPanics(t, func() { hub.Publish("org_a", realtime.EventStockChanged, nil) })
	assert.Zero(t, hub.ClientCount("org_a"))

	w := httptest.NewRecorder()
	hub.ServeWS(w, httptest.NewRequest(http.MethodGet, "/ws", nil), "org_a")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
