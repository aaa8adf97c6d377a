// Package socketio is a WebSocket-only Socket.IO v4 server.
//
// It multiplexes named events over Engine.IO sessions, groups sockets into
// rooms through an Adapter and reports room lifecycle transitions to
// listeners, the same way the Node.js socket.io adapter emits "create-room",
// "join-room", "leave-room" and "delete-room".
//
//	server := socketio.NewServer(nil)
//
//	server.OnConnect(func(socket *socketio.Socket) {
//	    socket.OnAny(func(event string, data ...interface{}) {
//	        if event == "join" {
//	            socket.Join("lobby")
//	        }
//	    })
//	})
//
//	server.Of("/").OnRoomEvent(func(evt socketio.RoomEvent) {
//	    if evt.Private {
//	        return // every socket's own room
//	    }
//	    log.Printf("%s %s by %s", evt.Type, evt.Room, evt.SocketID)
//	})
//
//	http.Handle("/socket.io/", server)
//
// # Ordering
//
// Event handlers run on the connection's read goroutine: events from one
// client are handled in arrival order. Broadcasts enqueue to each recipient
// without blocking, so a recipient sees packets in the order they were sent
// to it. A recipient whose queue is full is skipped.
//
// # Rooms
//
//	socket.Join("room1")
//	server.To("room1").Emit("news", "Hello room!")
//	server.To("room1").Except(socket.ID()).Emit("news", "Hello others!")
//	server.Of("/").In("room1").SocketsLeave("room1")
package socketio
