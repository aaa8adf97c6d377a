package sigrelay

import (
	"log/slog"

	"github.com/ramory-l/sigrelay/socketio"
)

// Options configures Attach.
type Options struct {
	MaxRoomNameLength int
	Logger            *slog.Logger
}

// Attach builds a Hub on a Socket.IO namespace and routes the namespace's
// connections, events and room lifecycle into it. The caller runs the Hub.
func Attach(ns *socketio.Namespace, opts Options) *Hub {
	hub := NewHub(NewSocketTransport(ns), opts.Logger)
	decoder := NewDecoder(opts.MaxRoomNameLength)

	ns.OnRoomEvent(func(evt socketio.RoomEvent) {
		ch := ChannelOf(evt.Room, evt.Private)
		switch evt.Type {
		case socketio.RoomCreated:
			hub.ChannelCreated(ch)
		case socketio.RoomJoined:
			hub.ChannelJoined(ch, evt.SocketID)
		case socketio.RoomLeft:
			hub.ChannelLeft(ch, evt.SocketID)
		case socketio.RoomDeleted:
			hub.ChannelDestroyed(ch)
		}
	})

	ns.OnConnect(func(socket *socketio.Socket) {
		hub.Connect(socket)

		socket.OnAny(func(event string, args ...interface{}) {
			cmd, err := decoder.Decode(event, args)
			if err != nil {
				hub.Reject(socket.ID(), err)
				return
			}
			hub.Dispatch(socket.ID(), cmd)
		})

		socket.OnDisconnect(func(reason string) {
			hub.Disconnect(socket.ID(), reason)
		})
	})

	return hub
}
