package sigrelay

// Event names shared by inbound commands and outbound notifications.
const (
	EventListRooms  = "list-rooms"
	EventCreateRoom = "create-room"
	EventJoinRoom   = "join-room"
	EventLeaveRoom  = "leave-room"
	EventDeleteRoom = "delete-room"
	EventMessage    = "message"
	EventError      = "error"
)

// Envelope wraps every outbound payload. Relayed messages carry From;
// notifications carry Target, the session the notification is about.
type Envelope struct {
	From   string      `json:"from,omitempty"`
	Target string      `json:"target,omitempty"`
	Data   interface{} `json:"data"`
}

// RoomData is the data of room lifecycle notifications.
type RoomData struct {
	Room string `json:"room"`
}

// RoomList is the data of a list-rooms answer.
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// ErrorData is the data of an error event.
type ErrorData struct {
	Type    ErrorKind `json:"type"`
	Message string    `json:"message"`
}
