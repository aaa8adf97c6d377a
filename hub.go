package sigrelay

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub owns the relay state and applies every input on a single goroutine,
// the one running Run. All other methods only queue work and are safe for
// concurrent use; they never block, so transport callbacks may call them
// while the loop itself is calling into the transport.
type Hub struct {
	transport Transport
	clients   *ClientRegistry
	rooms     *RoomRegistry
	relay     *EventRelay
	handlers  map[string]*CommandHandler
	log       *slog.Logger

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}

	roomCount   atomic.Int64
	clientCount atomic.Int64
}

// Stats is a point-in-time view of the registries.
type Stats struct {
	Rooms   int `json:"rooms"`
	Clients int `json:"clients"`
}

// NewHub creates a Hub on transport. Nothing is applied until Run starts.
func NewHub(transport Transport, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "hub")

	clients := NewClientRegistry()
	rooms := NewRoomRegistry(transport, log)
	return &Hub{
		transport: transport,
		clients:   clients,
		rooms:     rooms,
		relay:     NewEventRelay(clients, rooms, transport, log),
		handlers:  make(map[string]*CommandHandler),
		log:       log,
		wake:      make(chan struct{}, 1),
	}
}

// Run applies queued inputs in order until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	h.log.Debug("hub started")
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("hub stopped")
			return nil
		case <-h.wake:
			for _, fn := range h.drain() {
				h.apply(fn)
			}
		}
	}
}

// Connect registers a new session.
func (h *Hub) Connect(session Session) {
	h.enqueue(func() {
		client, err := h.clients.Register(session.ID(), session)
		if err != nil {
			h.log.Error("session not registered", "sid", session.ID(), "error", err)
			return
		}
		h.handlers[client.ID] = NewCommandHandler(client, h.clients, h.rooms, h.transport, h.log)
		h.log.Info("client connected", "sid", client.ID, "clients", h.clients.Len())
	})
}

// Disconnect forgets a session. The transport drops it from its channels on
// its own, which reaches the relay as ordinary leave events.
func (h *Hub) Disconnect(sessionID, reason string) {
	h.enqueue(func() {
		delete(h.handlers, sessionID)
		if err := h.clients.Unregister(sessionID); err != nil {
			h.log.Warn("disconnect of unknown session", "sid", sessionID, "error", err)
			return
		}
		h.log.Info("client disconnected", "sid", sessionID, "reason", reason, "clients", h.clients.Len())
	})
}

// Dispatch runs a decoded command for a session.
func (h *Hub) Dispatch(sessionID string, cmd Command) {
	h.enqueue(func() {
		handler, ok := h.handlers[sessionID]
		if !ok {
			h.log.Debug("command from unknown session dropped", "sid", sessionID, "event", cmd.Event())
			return
		}
		handler.Handle(cmd)
	})
}

// Reject answers err to a session whose input could not be decoded.
func (h *Hub) Reject(sessionID string, err error) {
	h.enqueue(func() {
		if handler, ok := h.handlers[sessionID]; ok {
			handler.Reject(err)
		}
	})
}

// ChannelCreated queues the creation of a transport channel.
func (h *Hub) ChannelCreated(ch Channel) {
	h.enqueue(func() { h.relay.ChannelCreated(ch) })
}

// ChannelJoined queues a session joining a transport channel.
func (h *Hub) ChannelJoined(ch Channel, sessionID string) {
	h.enqueue(func() { h.relay.ChannelJoined(ch, sessionID) })
}

// ChannelLeft queues a session leaving a transport channel.
func (h *Hub) ChannelLeft(ch Channel, sessionID string) {
	h.enqueue(func() { h.relay.ChannelLeft(ch, sessionID) })
}

// ChannelDestroyed queues the removal of an emptied transport channel.
func (h *Hub) ChannelDestroyed(ch Channel) {
	h.enqueue(func() { h.relay.ChannelDestroyed(ch) })
}

// Flush waits until every input queued before the call has been applied.
func (h *Hub) Flush(ctx context.Context) error {
	done := make(chan struct{})
	h.enqueue(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitEvictions waits for the background evictions of deleted rooms. The
// leave events they cause are queued, not yet applied, when it returns.
func (h *Hub) WaitEvictions() {
	h.rooms.WaitEvictions()
}

// Stats returns the registry sizes as of the last applied input.
func (h *Hub) Stats() Stats {
	return Stats{
		Rooms:   int(h.roomCount.Load()),
		Clients: int(h.clientCount.Load()),
	}
}

func (h *Hub) enqueue(fn func()) {
	h.mu.Lock()
	h.pending = append(h.pending, fn)
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Hub) drain() []func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	batch := h.pending
	h.pending = nil
	return batch
}

func (h *Hub) apply(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("input handler panicked", "panic", r)
		}
		h.roomCount.Store(int64(h.rooms.Len()))
		h.clientCount.Store(int64(h.clients.Len()))
	}()
	fn()
}
