package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/pkg/logger"
)

type Event string

const (
	EventSessionSnapshot    Event = "SessionSnapshot"
	EventProgressUpdated    Event = "ProgressUpdated"
	EventInteractionChanged Event = "InteractionRecorded"
	EventSessionClosed      Event = "SessionClosed"
)

// Envelope is one pushed message. Data always carries a full snapshot, never
// a diff, so applying the same envelope twice (or out of order) is harmless.
type Envelope struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

type Client struct {
	ID        uuid.UUID
	SubjectID uuid.UUID
	Channels  map[string]bool
	Outbound  chan Envelope
	done      chan struct{}
	closeOnce sync.Once

	// sendMu serializes sends against close so a concurrent teardown can
	// never turn a send into a panic on a closed Outbound.
	sendMu sync.Mutex
	closed bool
}

// Hub fans every envelope out to the clients subscribed to its channel.
// Delivery is buffered and non-blocking: a slow participant gets messages
// dropped rather than stalling the rest, and recovers by resyncing on
// reconnect.
type Hub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:        log.With("component", "Hub"),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

func (hub *Hub) NewClient(subjectID uuid.UUID) *Client {
	return &Client{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Channels:  make(map[string]bool),
		Outbound:  make(chan Envelope, 16),
		done:      make(chan struct{}),
	}
}

func (hub *Hub) Subscribe(client *Client, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	client.Channels[channel] = true

	clients, exists := hub.subscriptions[channel]
	if !exists {
		clients = make(map[*Client]bool)
		hub.subscriptions[channel] = clients
	}
	clients[client] = true

	hub.logger.Debug("client subscribed", "clientID", client.ID, "channel", channel)
}

func (hub *Hub) Unsubscribe(client *Client, channel string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	delete(client.Channels, channel)
	if subMap, ok := hub.subscriptions[channel]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, channel)
		}
	}
}

func (hub *Hub) removeClient(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for ch := range client.Channels {
		if subMap, ok := hub.subscriptions[ch]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
}

// Broadcast pushes env to every subscriber of its channel. Clients whose
// outbound buffer is full are skipped; they converge again on reconnect.
func (hub *Hub) Broadcast(env Envelope) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if env.Channel == "" {
		return
	}
	clients, ok := hub.subscriptions[env.Channel]
	if !ok {
		return
	}
	for c := range clients {
		if !hub.Send(c, env) {
			hub.logger.Warn("dropping message, outbound buffer full or client closed", "clientID", c.ID, "channel", env.Channel)
		}
	}
}

// Send delivers env to one client, tolerating a concurrent close of that
// client. Used for the initial frames pushed on stream connect, which race
// against the session ending. Returns false when the client is closed or its
// buffer is full.
func (hub *Hub) Send(client *Client, env Envelope) bool {
	client.sendMu.Lock()
	defer client.sendMu.Unlock()
	if client.closed {
		return false
	}
	select {
	case client.Outbound <- env:
		return true
	default:
		return false
	}
}

// CloseChannel disconnects every subscriber of channel. Used when a session
// ends or a test-mode room is torn down so no fan-out is left orphaned.
func (hub *Hub) CloseChannel(channel string) {
	hub.mu.Lock()
	clients := hub.subscriptions[channel]
	delete(hub.subscriptions, channel)
	var toClose []*Client
	for c := range clients {
		delete(c.Channels, channel)
		if len(c.Channels) == 0 {
			toClose = append(toClose, c)
		}
	}
	hub.mu.Unlock()

	for _, c := range toClose {
		hub.CloseClient(c)
	}
}

func (hub *Hub) CloseClient(client *Client) {
	client.closeOnce.Do(func() {
		close(client.done)
		hub.removeClient(client)
		client.sendMu.Lock()
		client.closed = true
		close(client.Outbound)
		client.sendMu.Unlock()
	})
}

// ServeHTTP streams the client's outbound envelopes as server-sent events
// until the request context or the client is closed.
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			hub.logger.Debug("client context done", "clientID", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case env, open := <-client.Outbound:
			if !open {
				return
			}
			raw, err := json.Marshal(env)
			if err != nil {
				hub.logger.Warn("failed to marshal envelope", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: message\ndata: %s\n\n", raw)
			flusher.Flush()
		}
	}
}
