package sigrelay

import (
	"errors"
	"fmt"
)

// ErrorKind names a command failure. It is sent to clients as the "type" of
// an error event.
type ErrorKind string

const (
	KindRoomAlreadyExists ErrorKind = "RoomAlreadyExists"
	KindRoomNotFound      ErrorKind = "RoomNotFound"
	KindAlreadyMember     ErrorKind = "AlreadyMember"
	KindOwnerCannotLeave  ErrorKind = "OwnerCannotLeave"
	KindNotOwner          ErrorKind = "NotOwner"
	KindInvalidCommand    ErrorKind = "InvalidCommand"
)

// CommandError is a validation failure of a client command. It is never
// fatal: the requester receives Message and nothing else happens.
type CommandError struct {
	Kind    ErrorKind
	Room    string
	Message string
}

func (e *CommandError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Is matches any CommandError of the same kind, so that
// errors.Is(err, ErrRoomNotFound) holds for every room.
func (e *CommandError) Is(target error) bool {
	var t *CommandError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrRoomAlreadyExists = &CommandError{Kind: KindRoomAlreadyExists}
	ErrRoomNotFound      = &CommandError{Kind: KindRoomNotFound}
	ErrAlreadyMember     = &CommandError{Kind: KindAlreadyMember}
	ErrOwnerCannotLeave  = &CommandError{Kind: KindOwnerCannotLeave}
	ErrNotOwner          = &CommandError{Kind: KindNotOwner}
	ErrInvalidCommand    = &CommandError{Kind: KindInvalidCommand}

	ErrDuplicateSession = errors.New("session already registered")
	ErrClientNotFound   = errors.New("client not found")
)

func roomAlreadyExists(room string) error {
	return &CommandError{Kind: KindRoomAlreadyExists, Room: room,
		Message: fmt.Sprintf("Cannot create room %q. A room with this name already exists.", room)}
}

func roomNotFound(room string) error {
	return &CommandError{Kind: KindRoomNotFound, Room: room,
		Message: fmt.Sprintf("Room %q does not exist.", room)}
}

func alreadyMember(room string) error {
	return &CommandError{Kind: KindAlreadyMember, Room: room,
		Message: fmt.Sprintf("Cannot join room %q. You are already a member.", room)}
}

func ownerCannotLeave(room string) error {
	return &CommandError{Kind: KindOwnerCannotLeave, Room: room,
		Message: fmt.Sprintf("Cannot leave room %q. Owners cannot leave their rooms.", room)}
}

func notOwner(room string) error {
	return &CommandError{Kind: KindNotOwner, Room: room,
		Message: fmt.Sprintf("Cannot delete room %q. Only the owner can delete a room.", room)}
}

func invalidCommand(format string, args ...interface{}) error {
	return &CommandError{Kind: KindInvalidCommand, Message: fmt.Sprintf(format, args...)}
}
