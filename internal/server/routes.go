// Package server wires HTTP handlers into a ServeMux for the chat
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// Both "/" and "/ws" accept WebSocket upgrades; plain requests to "/" get the
// liveness response.
func SetupRoutes(hub *Hub, cfg Config) *http.ServeMux {
	handler := NewHandler(hub, cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/", handler.RootHandler)
	mux.HandleFunc("/ws", handler.WebSocketHandler)
	return mux
}
