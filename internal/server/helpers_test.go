package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const (
	readTimeout = 2 * time.Second
	tick        = 10 * time.Millisecond
)

// startTestServer runs a hub behind an httptest server. Both are stopped on cleanup.
func startTestServer(t *testing.T, customize func(cfg *Config), opts ...Option) (*Hub, *httptest.Server) {
	t.Helper()

	cfg := NewConfig()
	if customize != nil {
		customize(cfg)
	}

	hub := NewHub(opts...)
	StartHub(hub)

	testServer := httptest.NewServer(SetupRoutes(hub, *cfg))
	t.Cleanup(func() {
		testServer.Close()
		_ = hub.Shutdown(2 * time.Second)
	})
	return hub, testServer
}

func wsURL(serverURL, path string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + path
}

// dial connects a gorilla client and closes it on cleanup.
func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(raw, &ev), "frame %q", raw)
	return ev
}

// readHandshake consumes the welcome and hello events and returns the hello.
func readHandshake(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	welcome := readEvent(t, conn)
	require.Equal(t, EventSystem, welcome.Type)
	require.Equal(t, textWelcome, welcome.Text)

	hello := readEvent(t, conn)
	require.Equal(t, EventHello, hello.Type)
	return hello
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

// expectNoEvent must be the last read on conn: gorilla connections do not
// recover from a read timeout.
func expectNoEvent(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no event, got %s", raw)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	t.Fatalf("unexpected error while waiting for absence of events: %v", err)
}
