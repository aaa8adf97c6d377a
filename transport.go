//go:generate go run go.uber.org/mock/mockgen -source=transport.go -destination=mocks/mock_transport.go -package=mocks

package sigrelay

import (
	"github.com/ramory-l/sigrelay/socketio"
)

// Session is one live connection as seen by the relay.
type Session interface {
	ID() string
	Emit(event string, data ...interface{}) error
}

// Transport is the session multiplexer the relay runs on. Join and Leave
// change channel membership and make the transport report the resulting
// lifecycle events back to the Hub. Evict makes every current member leave
// the channel. Broadcast with no channels targets every
// session; channels without members are ignored.
type Transport interface {
	Join(sessionID, channel string)
	Leave(sessionID, channel string)
	Members(channel string) []string
	Evict(channel string)
	Broadcast(channels []string, event string, payload interface{}) error
}

// SocketTransport runs the relay on a Socket.IO namespace.
type SocketTransport struct {
	ns *socketio.Namespace
}

// NewSocketTransport wraps ns.
func NewSocketTransport(ns *socketio.Namespace) *SocketTransport {
	return &SocketTransport{ns: ns}
}

func (t *SocketTransport) Join(sessionID, channel string) {
	if socket, ok := t.ns.GetSocket(sessionID); ok {
		socket.Join(channel)
	}
}

func (t *SocketTransport) Leave(sessionID, channel string) {
	if socket, ok := t.ns.GetSocket(sessionID); ok {
		socket.Leave(channel)
	}
}

func (t *SocketTransport) Members(channel string) []string {
	return t.ns.RoomSockets(channel)
}

func (t *SocketTransport) Evict(channel string) {
	t.ns.In(channel).SocketsLeave(channel)
}

func (t *SocketTransport) Broadcast(channels []string, event string, payload interface{}) error {
	return t.ns.To(channels...).Emit(event, payload)
}
