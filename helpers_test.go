package sigrelay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errSessionClosed = errors.New("session closed")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type received struct {
	Event    string
	Envelope Envelope
}

type fakeSession struct {
	id     string
	mu     sync.Mutex
	inbox  []received
	closed bool
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Emit(event string, data ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSessionClosed
	}
	env, _ := data[0].(Envelope)
	s.inbox = append(s.inbox, received{Event: event, Envelope: env})
	return nil
}

func (s *fakeSession) events(name string) []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Envelope
	for _, r := range s.inbox {
		if r.Event == name {
			out = append(out, r.Envelope)
		}
	}
	return out
}

func (s *fakeSession) errors() []ErrorData {
	var out []ErrorData
	for _, env := range s.events(EventError) {
		out = append(out, env.Data.(ErrorData))
	}
	return out
}

func (s *fakeSession) reset() {
	s.mu.Lock()
	s.inbox = nil
	s.mu.Unlock()
}

// fakeTransport keeps channel membership in memory and reports lifecycle
// events to the hub the way the Socket.IO adapter does.
type fakeTransport struct {
	mu       sync.Mutex
	hub      *Hub
	sessions map[string]*fakeSession
	channels map[string]map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sessions: make(map[string]*fakeSession),
		channels: make(map[string]map[string]bool),
	}
}

func (t *fakeTransport) Join(sessionID, channel string) {
	t.mu.Lock()
	members := t.channels[channel]
	created := members == nil
	if created {
		members = make(map[string]bool)
		t.channels[channel] = members
	}
	joined := !members[sessionID]
	members[sessionID] = true
	t.mu.Unlock()

	ch := ChannelOf(channel, channel == sessionID)
	if created {
		t.hub.ChannelCreated(ch)
	}
	if joined {
		t.hub.ChannelJoined(ch, sessionID)
	}
}

func (t *fakeTransport) Leave(sessionID, channel string) {
	t.mu.Lock()
	members := t.channels[channel]
	if !members[sessionID] {
		t.mu.Unlock()
		return
	}
	delete(members, sessionID)
	destroyed := len(members) == 0
	if destroyed {
		delete(t.channels, channel)
	}
	t.mu.Unlock()

	ch := ChannelOf(channel, channel == sessionID)
	t.hub.ChannelLeft(ch, sessionID)
	if destroyed {
		t.hub.ChannelDestroyed(ch)
	}
}

func (t *fakeTransport) Members(channel string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.channels[channel]))
	for sid := range t.channels[channel] {
		out = append(out, sid)
	}
	sort.Strings(out)
	return out
}

func (t *fakeTransport) Evict(channel string) {
	for _, sid := range t.Members(channel) {
		t.Leave(sid, channel)
	}
}

func (t *fakeTransport) Broadcast(channels []string, event string, payload interface{}) error {
	t.mu.Lock()
	targets := make(map[string]*fakeSession)
	if len(channels) == 0 {
		for sid, s := range t.sessions {
			targets[sid] = s
		}
	}
	for _, ch := range channels {
		for sid := range t.channels[ch] {
			if s, ok := t.sessions[sid]; ok {
				targets[sid] = s
			}
		}
	}
	t.mu.Unlock()

	for _, s := range targets {
		_ = s.Emit(event, payload)
	}
	return nil
}

func (t *fakeTransport) channelsOf(sessionID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for ch, members := range t.channels {
		if members[sessionID] {
			out = append(out, ch)
		}
	}
	return out
}

type harness struct {
	t         *testing.T
	hub       *Hub
	transport *fakeTransport
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	transport := newFakeTransport()
	hub := NewHub(transport, discardLogger())
	transport.hub = hub

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Run(ctx) }()

	return &harness{t: t, hub: hub, transport: transport}
}

func (h *harness) connect(id string) *fakeSession {
	s := &fakeSession{id: id}
	h.transport.mu.Lock()
	h.transport.sessions[id] = s
	h.transport.mu.Unlock()

	h.transport.Join(id, id)
	h.hub.Connect(s)
	h.settle()
	return s
}

func (h *harness) disconnect(s *fakeSession) {
	for _, ch := range h.transport.channelsOf(s.id) {
		h.transport.Leave(s.id, ch)
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	h.transport.mu.Lock()
	delete(h.transport.sessions, s.id)
	h.transport.mu.Unlock()

	h.hub.Disconnect(s.id, "test")
	h.settle()
}

func (h *harness) send(s *fakeSession, cmd Command) {
	h.hub.Dispatch(s.id, cmd)
	h.settle()
}

// held queues everything fn dispatches behind a gate, so the hub applies it
// as one batch once fn returns. Events the batch causes come after it.
func (h *harness) held(fn func()) {
	gate := make(chan struct{})
	h.hub.enqueue(func() { <-gate })
	fn()
	close(gate)
}

// settle applies everything queued so far, including the leave events of
// background evictions.
func (h *harness) settle() {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(h.t, h.hub.Flush(ctx))
	h.hub.WaitEvictions()
	require.NoError(h.t, h.hub.Flush(ctx))
}
