// Package server exposes HTTP handlers, including WebSocket upgrades and the
// plaintext liveness responder.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

const healthBody = "WebSocket chat server is running.\n"

// Handler upgrades HTTP requests to WebSocket connections and hands them to a Hub.
type Handler struct {
	hub      *Hub
	cfg      Config
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler bound to hub. cfg supplies the origin allow-list
// and per-connection limits.
func NewHandler(hub *Hub, cfg Config) *Handler {
	cfg = cfg.sanitized()
	policy := newOriginPolicy(cfg.AllowedOrigins)
	return &Handler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.checkOrigin,
		},
	}
}

// WebSocketHandler handles WebSocket upgrade requests. It validates that the
// request uses the GET method, upgrades the HTTP connection, and registers the
// resulting client with the hub, which starts the client's read/write pumps.
func (h *Handler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr, h.cfg)
	if err := h.hub.Register(client); err != nil {
		slog.Warn("Rejecting connection", "addr", r.RemoteAddr, "error", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
	}
}

// RootHandler serves WebSocket upgrades and plain liveness requests on the same path.
func (h *Handler) RootHandler(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.WebSocketHandler(w, r)
		return
	}
	HealthHandler(w, r)
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(healthBody)); err != nil {
		slog.Debug("Error writing health response", "error", err)
	}
}
