// Package server coordinates client registration, inbound frame handling, event
// broadcast, and connection cleanup for the chat system via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrHubClosed is returned when submitting work to a hub that has shut down.
var ErrHubClosed = errors.New("hub is closed")

// identityLength is the number of hex characters kept from a random UUID.
const identityLength = 8

type inboundFrame struct {
	client  *Client
	payload []byte
}

// Hub owns the registry of live clients. Registration, inbound frames and
// deregistration are funneled through channels and handled one at a time by
// Run, so the registry and every client's display name are only mutated from
// the hub goroutine. The mutex exists for readers outside it, like ClientCount.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundFrame
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	newIdentity func() string
	now         func() time.Time
}

// Option customizes a Hub.
type Option func(*Hub)

// WithIdentityGenerator replaces the random identity source.
func WithIdentityGenerator(fn func() string) Option {
	return func(h *Hub) {
		if fn != nil {
			h.newIdentity = fn
		}
	}
}

// WithClock replaces the time source used for event timestamps.
func WithClock(fn func() time.Time) Option {
	return func(h *Hub) {
		if fn != nil {
			h.now = fn
		}
	}
}

// NewHub creates and initializes a new Hub instance. The returned Hub is ready
// to manage connections once Run is started.
func NewHub(opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbound:     make(chan inboundFrame),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		newIdentity: newIdentity,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// newIdentity returns a short random handle. Uniqueness is best-effort and the
// value must never be treated as a credential.
func newIdentity() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:identityLength]
}

// Register hands a newly established client to the hub. It blocks until the hub
// accepts it.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

// Deregister removes a client whose transport has closed. Removing a client
// that is not registered is a no-op.
func (h *Hub) Deregister(client *Client) error {
	select {
	case h.unregister <- client:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

// Submit queues a raw inbound frame received from client.
func (h *Hub) Submit(client *Client, payload []byte) error {
	select {
	case h.inbound <- inboundFrame{client: client, payload: payload}:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop. It should be called in a separate
// goroutine and returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case frame := <-h.inbound:
			h.handleInbound(frame.client, frame.payload)

		case client := <-h.unregister:
			h.handleDeregister(client)
		}
	}
}

func (h *Hub) isRegistered(client *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[client]
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		slog.Warn("Received nil client registration; skipping")
		return
	}
	if h.isRegistered(client) || client.closed {
		slog.Warn("Client already registered or closed; skipping", "user_id", client.id, "addr", client.addr)
		return
	}

	client.id = h.newIdentity()
	client.name = "user-" + client.id

	h.mutex.Lock()
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()
	slog.Info("Client registered", "user_id", client.id, "addr", client.addr, "total_clients", clientCount)

	now := h.now()
	h.sendTo(client, newSystemEvent(textWelcome, now))
	h.sendTo(client, newHelloEvent(client.id, client.name, now))
	h.broadcast(newSystemEvent(client.name+" joined", now), client)

	if client.conn != nil {
		h.startPumps(client)
	}
}

func (h *Hub) startPumps(client *Client) {
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// handleInbound validates and classifies one frame from a registered client.
// Frames that do not decode to a known request get a private error reply.
func (h *Hub) handleInbound(client *Client, payload []byte) {
	if client == nil || !h.isRegistered(client) {
		slog.Debug("Dropping frame from unregistered client")
		return
	}

	req, ok := decodeRequest(payload)
	if !ok {
		slog.Debug("Invalid message", "user_id", client.id, "bytes", len(payload))
		h.sendTo(client, newSystemEvent(textInvalidFormat, h.now()))
		return
	}

	switch req.Type {
	case RequestPost:
		h.handlePost(client, req)
	case RequestRename:
		h.handleRename(client, req)
	}
}

func (h *Hub) handlePost(client *Client, req Request) {
	if !req.HasText || req.Text == "" {
		return
	}
	text := truncate(req.Text, MaxTextLength)

	// The sender gets its own message back; clients render only what they receive.
	h.broadcast(newChatEvent(text, client.id, client.name, h.now()), nil)
}

func (h *Hub) handleRename(client *Client, req Request) {
	name := sanitizeName(req.Name)
	if name == "" {
		h.sendTo(client, newSystemEvent(textEmptyName, h.now()))
		return
	}

	previous := client.name
	client.name = name
	slog.Info("Client renamed", "user_id", client.id, "from", previous, "to", name)
	h.broadcast(newSystemEvent(previous+" is now "+name, h.now()), nil)
}

func (h *Hub) handleDeregister(client *Client) {
	if client == nil {
		return
	}

	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Closing the channel tells the write pump to send a close frame and exit.
	close(client.send)
	slog.Info("Client unregistered", "user_id", client.id, "addr", client.addr, "total_clients", clientCount)

	h.broadcast(newSystemEvent(client.name+" left", h.now()), nil)
}

// sendTo delivers an event to a single client, best-effort.
func (h *Hub) sendTo(client *Client, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Error encoding event", "type", event.Type, "error", err)
		return
	}
	if !client.trySend(payload) {
		slog.Warn("Dropping event for client", "type", event.Type, "user_id", client.id, "addr", client.addr)
	}
}

// broadcast serializes event once and offers it to every open client except
// except. A recipient whose buffer is full misses the event; delivery to the
// others continues.
func (h *Hub) broadcast(event Event, except *Client) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Error encoding event", "type", event.Type, "error", err)
		return
	}

	clients := h.getClientSnapshot()
	delivered := 0
	for _, client := range clients {
		if client == except {
			continue
		}
		if !client.trySend(payload) {
			slog.Warn("Dropping event for slow client", "type", event.Type, "user_id", client.id, "addr", client.addr)
			continue
		}
		delivered++
	}

	slog.Debug("Broadcast event", "type", event.Type, "recipients", delivered)
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// shutdownClients closes every client's outbound channel and transport.
func (h *Hub) shutdownClients() {
	slog.Info("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
		client.closed = true
		delete(h.clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				slog.Warn("Error closing client connection", "addr", client.addr, "error", err)
			}
		}
	}

	slog.Info("Closed client connections", "count", len(clients))
}

// Shutdown stops the hub and waits for all pump goroutines to complete.
// It returns context.DeadlineExceeded if they are still running after timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	slog.Info("Initiating hub shutdown...")

	h.cancel()

	select {
	case <-h.done:
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		slog.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
