package sigrelay

import (
	"fmt"
	"time"
)

// Client is the record of one live session.
type Client struct {
	ID          string
	Session     Session
	ConnectedAt time.Time
}

// Emit sends one event to the client's session.
func (c *Client) Emit(event string, payload interface{}) error {
	return c.Session.Emit(event, payload)
}

// ClientRegistry maps session ids to clients. It is not safe for concurrent
// use; the Hub loop is its only user.
type ClientRegistry struct {
	clients map[string]*Client
	now     func() time.Time
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
		now:     time.Now,
	}
}

// Register stores a new client for the session.
func (r *ClientRegistry) Register(sessionID string, session Session) (*Client, error) {
	if _, exists := r.clients[sessionID]; exists {
		return nil, fmt.Errorf("register %s: %w", sessionID, ErrDuplicateSession)
	}
	c := &Client{ID: sessionID, Session: session, ConnectedAt: r.now()}
	r.clients[sessionID] = c
	return c, nil
}

// Unregister removes the client of the session.
func (r *ClientRegistry) Unregister(sessionID string) error {
	if _, exists := r.clients[sessionID]; !exists {
		return fmt.Errorf("unregister %s: %w", sessionID, ErrClientNotFound)
	}
	delete(r.clients, sessionID)
	return nil
}

// Find returns the client of the session.
func (r *ClientRegistry) Find(sessionID string) (*Client, bool) {
	c, ok := r.clients[sessionID]
	return c, ok
}

// Len returns the number of connected clients.
func (r *ClientRegistry) Len() int {
	return len(r.clients)
}
