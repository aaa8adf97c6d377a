package sigrelay

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// DefaultMaxRoomNameLength bounds room names when no limit is configured.
const DefaultMaxRoomNameLength = 128

// Command is a decoded client request. The variants are ListRooms,
// CreateRoom, JoinRoom, LeaveRoom, DeleteRoom and Message.
type Command interface {
	Event() string
	accept(v commandVisitor)
}

// commandVisitor must handle every Command variant; adding a variant without
// a handler does not compile.
type commandVisitor interface {
	listRooms(ListRooms)
	createRoom(CreateRoom)
	joinRoom(JoinRoom)
	leaveRoom(LeaveRoom)
	deleteRoom(DeleteRoom)
	message(Message)
}

type ListRooms struct {
	AppName string `mapstructure:"appName"`
}

type CreateRoom struct {
	Room        string `mapstructure:"room"`
	AppName     string `mapstructure:"appName"`
	Description string `mapstructure:"description"`
}

type JoinRoom struct {
	Room string `mapstructure:"room"`
}

type LeaveRoom struct {
	Room string `mapstructure:"room"`
}

type DeleteRoom struct {
	Room string `mapstructure:"room"`
}

// Message relays Data to To, a list of session ids and/or room names. An
// empty To targets every connected session.
type Message struct {
	To   []string    `mapstructure:"to" validate:"dive,required"`
	Data interface{} `mapstructure:"message"`
}

func (ListRooms) Event() string  { return EventListRooms }
func (CreateRoom) Event() string { return EventCreateRoom }
func (JoinRoom) Event() string   { return EventJoinRoom }
func (LeaveRoom) Event() string  { return EventLeaveRoom }
func (DeleteRoom) Event() string { return EventDeleteRoom }
func (Message) Event() string    { return EventMessage }

func (c ListRooms) accept(v commandVisitor)  { v.listRooms(c) }
func (c CreateRoom) accept(v commandVisitor) { v.createRoom(c) }
func (c JoinRoom) accept(v commandVisitor)   { v.joinRoom(c) }
func (c LeaveRoom) accept(v commandVisitor)  { v.leaveRoom(c) }
func (c DeleteRoom) accept(v commandVisitor) { v.deleteRoom(c) }
func (c Message) accept(v commandVisitor)    { v.message(c) }

type roomCommand interface {
	roomName() string
}

func (c CreateRoom) roomName() string { return c.Room }
func (c JoinRoom) roomName() string   { return c.Room }
func (c LeaveRoom) roomName() string  { return c.Room }
func (c DeleteRoom) roomName() string { return c.Room }

// Decoder turns raw Socket.IO events into Commands.
type Decoder struct {
	validate    *validator.Validate
	roomRule    string
	maxRoomName int
}

// NewDecoder creates a Decoder that rejects room names longer than
// maxRoomNameLength, or DefaultMaxRoomNameLength when it is not positive.
func NewDecoder(maxRoomNameLength int) *Decoder {
	if maxRoomNameLength <= 0 {
		maxRoomNameLength = DefaultMaxRoomNameLength
	}
	return &Decoder{
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		roomRule:    fmt.Sprintf("required,max=%d", maxRoomNameLength),
		maxRoomName: maxRoomNameLength,
	}
}

// Decode builds the Command for event from its arguments. Only the first
// argument is read; a trailing acknowledgement callback is ignored.
func (d *Decoder) Decode(event string, args []interface{}) (Command, error) {
	var payload interface{} = map[string]interface{}{}
	if len(args) > 0 {
		if _, isAck := args[0].(func(...interface{})); !isAck && args[0] != nil {
			payload = args[0]
		}
	}

	var cmd Command
	switch event {
	case EventListRooms:
		cmd = &ListRooms{}
	case EventCreateRoom:
		cmd = &CreateRoom{}
	case EventJoinRoom:
		cmd = &JoinRoom{}
	case EventLeaveRoom:
		cmd = &LeaveRoom{}
	case EventDeleteRoom:
		cmd = &DeleteRoom{}
	case EventMessage:
		cmd = &Message{}
	default:
		return nil, invalidCommand("Unknown event %q.", event)
	}

	if err := d.decode(event, payload, cmd); err != nil {
		return nil, err
	}

	if rc, ok := cmd.(roomCommand); ok {
		if err := d.validate.Var(rc.roomName(), d.roomRule); err != nil {
			return nil, invalidCommand("Invalid %s payload: a room name of at most %d characters is required.",
				event, d.maxRoomName)
		}
	}

	switch c := cmd.(type) {
	case *ListRooms:
		return *c, nil
	case *CreateRoom:
		return *c, nil
	case *JoinRoom:
		return *c, nil
	case *LeaveRoom:
		return *c, nil
	case *DeleteRoom:
		return *c, nil
	case *Message:
		return *c, nil
	}
	return nil, invalidCommand("Unknown event %q.", event)
}

func (d *Decoder) decode(event string, payload interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(payload); err != nil {
		return invalidCommand("Malformed %s payload.", event)
	}
	if err := d.validate.Struct(out); err != nil {
		return invalidCommand("Invalid %s payload.", event)
	}
	return nil
}
