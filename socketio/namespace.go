package socketio

import (
	"log/slog"
	"sync"

	"github.com/ramory-l/sigrelay/engineio"
)

// Namespace represents a Socket.IO namespace
type Namespace struct {
	name      string
	server    *Server
	adapter   Adapter
	sockets   map[string]*Socket
	mu        sync.RWMutex
	onConnect func(*Socket)
	log       *slog.Logger
}

// NewNamespace creates a new namespace
func NewNamespace(name string, server *Server) *Namespace {
	log := slog.Default()
	if server != nil && server.log != nil {
		log = server.log
	}
	ns := &Namespace{
		name:    name,
		server:  server,
		sockets: make(map[string]*Socket),
		log:     log.With("namespace", name),
	}

	ns.adapter = NewMemoryAdapter(ns)

	return ns
}

// Name returns the namespace name
func (ns *Namespace) Name() string {
	return ns.name
}

// OnConnect sets the connection handler for this namespace
func (ns *Namespace) OnConnect(handler func(*Socket)) {
	ns.onConnect = handler
}

// OnRoomEvent registers a room lifecycle listener on the namespace adapter.
func (ns *Namespace) OnRoomEvent(listener RoomListener) {
	ns.adapter.OnRoomEvent(listener)
}

// To returns a BroadcastOperator for emitting to specific rooms
func (ns *Namespace) To(rooms ...string) *BroadcastOperator {
	return &BroadcastOperator{
		namespace: ns,
		rooms:     rooms,
	}
}

// In is an alias of To.
func (ns *Namespace) In(rooms ...string) *BroadcastOperator {
	return ns.To(rooms...)
}

// Emit broadcasts an event to all sockets in the namespace
func (ns *Namespace) Emit(event string, data ...interface{}) error {
	return ns.To().Emit(event, data...)
}

// Sockets returns all connected sockets
func (ns *Namespace) Sockets() []*Socket {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	sockets := make([]*Socket, 0, len(ns.sockets))
	for _, socket := range ns.sockets {
		sockets = append(sockets, socket)
	}
	return sockets
}

// GetSocket retrieves a socket by ID
func (ns *Namespace) GetSocket(id string) (*Socket, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	socket, ok := ns.sockets[id]
	return socket, ok
}

// RoomSockets returns the IDs of the sockets currently in room.
func (ns *Namespace) RoomSockets(room string) []string {
	return ns.adapter.Sockets(room)
}

// SetAdapter sets a custom adapter
func (ns *Namespace) SetAdapter(adapter Adapter) {
	ns.adapter = adapter
}

func (ns *Namespace) addSocket(session *engineio.Session) {
	socket := NewSocket(session.ID(), session, ns)

	ns.mu.Lock()
	ns.sockets[socket.ID()] = socket
	ns.mu.Unlock()

	// Every socket lives in a private room named after its ID.
	socket.Join(socket.ID())

	connectPacket := &Packet{
		Type:      PacketTypeConnect,
		Namespace: ns.name,
		Data:      map[string]interface{}{"sid": socket.ID()},
	}
	if err := socket.sendPacket(connectPacket); err != nil {
		ns.log.Debug("connect packet not sent", "sid", socket.ID(), "error", err)
	}

	if ns.onConnect != nil {
		ns.onConnect(socket)
	}
}

func (ns *Namespace) removeSocket(id string) {
	ns.mu.Lock()
	delete(ns.sockets, id)
	ns.mu.Unlock()

	ns.adapter.RemoveAll(id)
}

// BroadcastOperator provides methods for broadcasting to specific rooms
type BroadcastOperator struct {
	namespace *Namespace
	rooms     []string
	except    []string
}

// To adds rooms to broadcast to
func (b *BroadcastOperator) To(rooms ...string) *BroadcastOperator {
	b.rooms = append(b.rooms, rooms...)
	return b
}

// Except excludes specific socket IDs from the broadcast
func (b *BroadcastOperator) Except(socketIDs ...string) *BroadcastOperator {
	b.except = append(b.except, socketIDs...)
	return b
}

// Emit broadcasts an event
func (b *BroadcastOperator) Emit(event string, data ...interface{}) error {
	args := make([]interface{}, 0, len(data)+1)
	args = append(args, event)
	args = append(args, data...)

	packet := &Packet{
		Type:      PacketTypeEvent,
		Namespace: b.namespace.name,
		Data:      args,
	}

	return b.namespace.adapter.Broadcast(packet, b.rooms, b.except)
}

// SocketIDs returns the IDs of the sockets matched by the operator.
func (b *BroadcastOperator) SocketIDs() []string {
	excluded := make(map[string]bool, len(b.except))
	for _, sid := range b.except {
		excluded[sid] = true
	}

	seen := make(map[string]bool)
	var ids []string
	collect := func(sid string) {
		if excluded[sid] || seen[sid] {
			return
		}
		seen[sid] = true
		ids = append(ids, sid)
	}

	if len(b.rooms) == 0 {
		for _, socket := range b.namespace.Sockets() {
			collect(socket.ID())
		}
		return ids
	}
	for _, room := range b.rooms {
		for _, sid := range b.namespace.adapter.Sockets(room) {
			collect(sid)
		}
	}
	return ids
}

// SocketsLeave makes every matched socket leave the given rooms. Membership
// is snapshotted when called; sockets joining afterwards are not affected.
func (b *BroadcastOperator) SocketsLeave(rooms ...string) {
	for _, sid := range b.SocketIDs() {
		socket, ok := b.namespace.GetSocket(sid)
		if !ok {
			continue
		}
		for _, room := range rooms {
			socket.Leave(room)
		}
	}
}
