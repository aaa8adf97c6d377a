package socketio

// RoomEventType identifies a room lifecycle transition observed by an Adapter.
type RoomEventType int

const (
	RoomCreated RoomEventType = iota
	RoomJoined
	RoomLeft
	RoomDeleted
)

func (t RoomEventType) String() string {
	switch t {
	case RoomCreated:
		return "create-room"
	case RoomJoined:
		return "join-room"
	case RoomLeft:
		return "leave-room"
	case RoomDeleted:
		return "delete-room"
	default:
		return "unknown"
	}
}

// RoomEvent describes one lifecycle transition. SocketID is the socket whose
// Add/Remove caused the transition. Private is set when the room is that
// socket's own room (every socket joins a room named after its ID).
type RoomEvent struct {
	Type     RoomEventType
	Room     string
	SocketID string
	Private  bool
}

// RoomListener receives room lifecycle events. Listeners run synchronously
// on the goroutine that changed membership, after the adapter released its
// locks, so they may call back into the adapter.
type RoomListener func(RoomEvent)

// Adapter is the interface for managing rooms and broadcasting
type Adapter interface {
	// Add adds a socket to a room
	Add(socketID, room string)

	// Remove removes a socket from a room
	Remove(socketID, room string)

	// RemoveAll removes a socket from all rooms
	RemoveAll(socketID string)

	// Sockets returns all socket IDs in a room
	Sockets(room string) []string

	// SocketRooms returns all rooms a socket is in
	SocketRooms(socketID string) []string

	// Broadcast sends a packet to all sockets in specified rooms except excluded ones
	Broadcast(packet *Packet, rooms []string, except []string) error

	// OnRoomEvent registers a lifecycle listener
	OnRoomEvent(listener RoomListener)

	// Close cleans up the adapter
	Close() error
}
