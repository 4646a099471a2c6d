// Package server implements the broadcast chat server.
//
// A single Hub owns the registry of live WebSocket clients. It assigns each
// client an identity and display name, classifies inbound frames (posts and
// renames), and fans resulting events out to every open client on a
// best-effort basis: a recipient that cannot keep up misses events, and no
// delivery failure is ever reported back to a sender.
//
// The implementation is organized into specialized files for configuration,
// hub management, clients, the wire protocol, routing, and HTTP handlers.
package server
