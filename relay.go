package sigrelay

import (
	"log/slog"
)

// EventRelay turns channel lifecycle events reported by the transport into
// client notifications. Events about private session channels are ignored,
// and so is any event whose room cannot be resolved.
type EventRelay struct {
	clients   *ClientRegistry
	rooms     *RoomRegistry
	transport Transport
	log       *slog.Logger
}

// NewEventRelay creates a relay that reads the registries and notifies
// through transport.
func NewEventRelay(clients *ClientRegistry, rooms *RoomRegistry, transport Transport, log *slog.Logger) *EventRelay {
	return &EventRelay{
		clients:   clients,
		rooms:     rooms,
		transport: transport,
		log:       log,
	}
}

// ChannelCreated notifies the room owner.
func (r *EventRelay) ChannelCreated(ch Channel) {
	rc, ok := ch.(RoomChannel)
	if !ok {
		return
	}
	room, found := r.rooms.Find(rc.Room)
	if !found {
		r.log.Debug("channel created for unknown room", "room", rc.Room)
		return
	}
	notifyOwner(r.clients, room, EventCreateRoom, r.log)
}

// ChannelJoined tells the room, joiner included, who joined.
func (r *EventRelay) ChannelJoined(ch Channel, sessionID string) {
	rc, ok := ch.(RoomChannel)
	if !ok {
		return
	}
	r.log.Info("session joined room", "room", rc.Room, "sid", sessionID)

	env := Envelope{Target: sessionID, Data: RoomData{Room: rc.Room}}
	if err := r.transport.Broadcast([]string{rc.Room}, EventJoinRoom, env); err != nil {
		r.log.Warn("join notification failed", "room", rc.Room, "error", err)
	}
}

// ChannelLeft tells the remaining members and the leaver who left.
func (r *EventRelay) ChannelLeft(ch Channel, sessionID string) {
	rc, ok := ch.(RoomChannel)
	if !ok {
		return
	}
	r.log.Info("session left room", "room", rc.Room, "sid", sessionID)

	env := Envelope{Target: sessionID, Data: RoomData{Room: rc.Room}}
	if err := r.transport.Broadcast([]string{rc.Room}, EventLeaveRoom, env); err != nil {
		r.log.Warn("leave notification failed", "room", rc.Room, "error", err)
	}
	if c, found := r.clients.Find(sessionID); found {
		if err := c.Emit(EventLeaveRoom, env); err != nil {
			r.log.Debug("leave notification not delivered", "sid", sessionID, "error", err)
		}
	}
}

// ChannelDestroyed notifies the former owner of a deleted room. A channel
// that emptied while its room is still registered produces nothing.
func (r *EventRelay) ChannelDestroyed(ch Channel) {
	rc, ok := ch.(RoomChannel)
	if !ok {
		return
	}
	room, found := r.rooms.Reap(rc.Room)
	if !found {
		return
	}
	notifyOwner(r.clients, room, EventDeleteRoom, r.log)
}

func notifyOwner(clients *ClientRegistry, room *Room, event string, log *slog.Logger) {
	owner, found := clients.Find(room.Owner())
	if !found {
		log.Debug("room owner gone", "room", room.Name(), "owner", room.Owner(), "event", event)
		return
	}
	env := Envelope{Target: owner.ID, Data: RoomData{Room: room.Name()}}
	if err := owner.Emit(event, env); err != nil {
		log.Debug("owner notification not delivered", "room", room.Name(), "event", event, "error", err)
	}
}
