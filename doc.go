// Package sigrelay is a signaling relay: peers connected over Socket.IO
// discover each other through named rooms and exchange opaque messages,
// point-to-point or broadcast. The relay never looks inside payloads; it is
// meant to bootstrap peer-to-peer sessions such as WebRTC offer/answer/ICE
// exchange.
//
// # Model
//
// A Hub owns every piece of state: the ClientRegistry (one Client per live
// session), the RoomRegistry (one Room per name, globally unique, owned by
// the session that created it) and one CommandHandler per session. The
// current members of a room are never copied into the Room; they are read
// from the Transport when needed.
//
// Every input (connect, disconnect, decoded command, room lifecycle event
// reported by the transport) is queued and applied by Hub.Run on a single
// goroutine, so the registries need no locks and every command sees a
// consistent snapshot.
//
// # Notifications
//
// Successful room commands answer nothing directly. The membership change
// they cause is reported back by the transport and turned into notifications
// by the EventRelay, so joins and leaves caused by a disconnect or by a room
// deletion look exactly like explicit ones. Failed commands answer an
// "error" event to the requester only.
//
// # Wiring
//
//	server := socketio.NewServer(nil)
//	hub := sigrelay.Attach(server.Of("/"), sigrelay.Options{Logger: logger})
//	go hub.Run(ctx)
//	http.Handle("/socket.io/", server)
package sigrelay
