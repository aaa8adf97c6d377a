package socketio

import (
	"sync"

	"github.com/ramory-l/sigrelay/engineio"
)

// MemoryAdapter is an in-memory implementation of the Adapter interface
type MemoryAdapter struct {
	rooms       map[string]map[string]bool // room -> socketIDs
	socketRooms map[string]map[string]bool // socketID -> rooms
	mu          sync.RWMutex
	namespace   *Namespace

	listeners   []RoomListener
	listenersMu sync.RWMutex
}

// NewMemoryAdapter creates a new in-memory adapter
func NewMemoryAdapter(namespace *Namespace) *MemoryAdapter {
	return &MemoryAdapter{
		rooms:       make(map[string]map[string]bool),
		socketRooms: make(map[string]map[string]bool),
		namespace:   namespace,
	}
}

// OnRoomEvent registers a lifecycle listener
func (a *MemoryAdapter) OnRoomEvent(listener RoomListener) {
	a.listenersMu.Lock()
	a.listeners = append(a.listeners, listener)
	a.listenersMu.Unlock()
}

// Add adds a socket to a room. Adding a socket that is already a member is a
// no-op and emits nothing.
func (a *MemoryAdapter) Add(socketID, room string) {
	a.mu.Lock()
	events := a.add(socketID, room)
	a.mu.Unlock()

	a.emit(events)
}

// Remove removes a socket from a room
func (a *MemoryAdapter) Remove(socketID, room string) {
	a.mu.Lock()
	events := a.remove(socketID, room)
	a.mu.Unlock()

	a.emit(events)
}

// RemoveAll removes a socket from all rooms
func (a *MemoryAdapter) RemoveAll(socketID string) {
	a.mu.Lock()
	var events []RoomEvent
	for room := range a.socketRooms[socketID] {
		events = append(events, a.remove(socketID, room)...)
	}
	a.mu.Unlock()

	a.emit(events)
}

func (a *MemoryAdapter) add(socketID, room string) []RoomEvent {
	private := socketID == room
	var events []RoomEvent

	members := a.rooms[room]
	if members == nil {
		members = make(map[string]bool)
		a.rooms[room] = members
		events = append(events, RoomEvent{Type: RoomCreated, Room: room, SocketID: socketID, Private: private})
	}
	if members[socketID] {
		return events
	}
	members[socketID] = true

	if a.socketRooms[socketID] == nil {
		a.socketRooms[socketID] = make(map[string]bool)
	}
	a.socketRooms[socketID][room] = true

	return append(events, RoomEvent{Type: RoomJoined, Room: room, SocketID: socketID, Private: private})
}

func (a *MemoryAdapter) remove(socketID, room string) []RoomEvent {
	members := a.rooms[room]
	if !members[socketID] {
		return nil
	}
	private := socketID == room

	delete(members, socketID)
	if rooms := a.socketRooms[socketID]; rooms != nil {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(a.socketRooms, socketID)
		}
	}

	events := []RoomEvent{{Type: RoomLeft, Room: room, SocketID: socketID, Private: private}}
	if len(members) == 0 {
		delete(a.rooms, room)
		events = append(events, RoomEvent{Type: RoomDeleted, Room: room, SocketID: socketID, Private: private})
	}
	return events
}

func (a *MemoryAdapter) emit(events []RoomEvent) {
	if len(events) == 0 {
		return
	}
	a.listenersMu.RLock()
	listeners := a.listeners
	a.listenersMu.RUnlock()

	for _, evt := range events {
		for _, listener := range listeners {
			listener(evt)
		}
	}
}

// Sockets returns all socket IDs in a room
func (a *MemoryAdapter) Sockets(room string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	sockets := a.rooms[room]
	result := make([]string, 0, len(sockets))
	for socketID := range sockets {
		result = append(result, socketID)
	}
	return result
}

// SocketRooms returns all rooms a socket is in
func (a *MemoryAdapter) SocketRooms(socketID string) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rooms := a.socketRooms[socketID]
	result := make([]string, 0, len(rooms))
	for room := range rooms {
		result = append(result, room)
	}
	return result
}

// Broadcast sends a packet to all sockets in specified rooms except excluded
// ones. With no rooms it targets every socket of the namespace. Rooms that do
// not exist contribute no targets.
func (a *MemoryAdapter) Broadcast(packet *Packet, rooms []string, except []string) error {
	excluded := make(map[string]bool, len(except))
	for _, sid := range except {
		excluded[sid] = true
	}

	targets := make(map[string]bool)
	if len(rooms) == 0 {
		a.namespace.mu.RLock()
		for sid := range a.namespace.sockets {
			if !excluded[sid] {
				targets[sid] = true
			}
		}
		a.namespace.mu.RUnlock()
	} else {
		a.mu.RLock()
		for _, room := range rooms {
			for sid := range a.rooms[room] {
				if !excluded[sid] {
					targets[sid] = true
				}
			}
		}
		a.mu.RUnlock()
	}

	if len(targets) == 0 {
		return nil
	}

	encoded, err := packet.Encode()
	if err != nil {
		return err
	}

	a.namespace.mu.RLock()
	defer a.namespace.mu.RUnlock()

	for sid := range targets {
		socket, ok := a.namespace.sockets[sid]
		if !ok {
			continue
		}
		// Send only enqueues, so per-recipient order is the call order.
		if err := socket.session.Send(&engineio.Packet{
			Type: engineio.PacketTypeMessage,
			Data: []byte(encoded),
		}); err != nil {
			a.namespace.log.Debug("broadcast delivery failed", "sid", sid, "error", err)
		}
	}

	return nil
}

// Close cleans up the adapter
func (a *MemoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rooms = make(map[string]map[string]bool)
	a.socketRooms = make(map[string]map[string]bool)

	return nil
}
