package sigrelay

import (
	"errors"
	"log/slog"

	"github.com/samber/lo"
)

// CommandHandler executes the commands of one session against the
// registries. Failures are answered to that session only.
type CommandHandler struct {
	client    *Client
	clients   *ClientRegistry
	rooms     *RoomRegistry
	transport Transport
	log       *slog.Logger
}

var _ commandVisitor = (*CommandHandler)(nil)

// NewCommandHandler creates the handler of one client.
func NewCommandHandler(client *Client, clients *ClientRegistry, rooms *RoomRegistry, transport Transport, log *slog.Logger) *CommandHandler {
	return &CommandHandler{
		client:    client,
		clients:   clients,
		rooms:     rooms,
		transport: transport,
		log:       log.With("sid", client.ID),
	}
}

// Handle runs one command to completion.
func (h *CommandHandler) Handle(cmd Command) {
	h.log.Debug("command received", "event", cmd.Event())
	cmd.accept(h)
}

func (h *CommandHandler) listRooms(cmd ListRooms) {
	h.send(EventListRooms, Envelope{
		Target: h.client.ID,
		Data:   RoomList{Rooms: h.rooms.ListByApp(cmd.AppName)},
	})
}

func (h *CommandHandler) createRoom(cmd CreateRoom) {
	// Session ids name the private channels; a room cannot shadow one.
	if _, taken := h.clients.Find(cmd.Room); taken {
		h.fail(roomAlreadyExists(cmd.Room))
		return
	}
	// A deleted room stays taken until its channel is gone, so that its
	// eviction cannot hit members of a new room with the same name.
	if _, exists := h.rooms.Find(cmd.Room); exists || h.rooms.Retired(cmd.Room) {
		h.fail(roomAlreadyExists(cmd.Room))
		return
	}

	if _, err := h.rooms.Create(cmd.Room, cmd.AppName, cmd.Description, h.client.ID); err != nil {
		h.fail(err)
	}
}

func (h *CommandHandler) joinRoom(cmd JoinRoom) {
	if _, exists := h.rooms.Find(cmd.Room); !exists {
		h.fail(roomNotFound(cmd.Room))
		return
	}
	if lo.Contains(h.transport.Members(cmd.Room), h.client.ID) {
		h.fail(alreadyMember(cmd.Room))
		return
	}
	h.transport.Join(h.client.ID, cmd.Room)
}

func (h *CommandHandler) leaveRoom(cmd LeaveRoom) {
	room, exists := h.rooms.Find(cmd.Room)
	if !exists {
		h.fail(roomNotFound(cmd.Room))
		return
	}
	if room.Owner() == h.client.ID {
		h.fail(ownerCannotLeave(cmd.Room))
		return
	}
	h.transport.Leave(h.client.ID, cmd.Room)
}

func (h *CommandHandler) deleteRoom(cmd DeleteRoom) {
	room, exists := h.rooms.Find(cmd.Room)
	if !exists {
		h.fail(roomNotFound(cmd.Room))
		return
	}
	if room.Owner() != h.client.ID {
		h.fail(notOwner(cmd.Room))
		return
	}
	_, draining, err := h.rooms.Delete(cmd.Room)
	if err != nil {
		h.fail(err)
		return
	}
	if !draining {
		notifyOwner(h.clients, room, EventDeleteRoom, h.log)
	}
}

// message relays fire and forget: unknown targets are dropped silently.
func (h *CommandHandler) message(cmd Message) {
	err := h.transport.Broadcast(cmd.To, EventMessage, Envelope{
		From: h.client.ID,
		Data: cmd.Data,
	})
	if err != nil {
		h.log.Warn("message relay failed", "to", cmd.To, "error", err)
	}
}

// Reject answers an error produced before a command could be decoded.
func (h *CommandHandler) Reject(err error) {
	h.fail(err)
}

func (h *CommandHandler) fail(err error) {
	data := ErrorData{Type: KindInvalidCommand, Message: err.Error()}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		data.Type = cmdErr.Kind
	}

	h.log.Debug("command rejected", "type", data.Type, "message", data.Message)
	h.send(EventError, Envelope{From: h.client.ID, Target: h.client.ID, Data: data})
}

func (h *CommandHandler) send(event string, env Envelope) {
	if err := h.client.Emit(event, env); err != nil {
		h.log.Debug("emit failed", "event", event, "error", err)
	}
}
