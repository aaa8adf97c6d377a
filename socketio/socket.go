package socketio

import (
	"sync"

	"github.com/ramory-l/sigrelay/engineio"
)

// Socket represents a client connection
type Socket struct {
	id           string
	session      *engineio.Session
	namespace    *Namespace
	rooms        map[string]bool
	roomsMu      sync.RWMutex
	anyHandlers  []AnyHandler
	handlersMu   sync.RWMutex
	onDisconnect []func(string)
	disconnectMu sync.RWMutex
}

// AnyHandler receives every inbound event. When the client asked for an
// acknowledgment the last argument is a func(...interface{}) sending it.
type AnyHandler func(event string, data ...interface{})

// NewSocket creates a new socket
func NewSocket(id string, session *engineio.Session, namespace *Namespace) *Socket {
	socket := &Socket{
		id:        id,
		session:   session,
		namespace: namespace,
		rooms:     make(map[string]bool),
	}

	session.OnMessage(socket.handleMessage)
	session.OnClose(socket.handleClose)

	return socket
}

// ID returns the socket ID
func (s *Socket) ID() string {
	return s.id
}

// Emit sends an event to the client
func (s *Socket) Emit(event string, data ...interface{}) error {
	args := make([]interface{}, 0, len(data)+1)
	args = append(args, event)
	args = append(args, data...)

	packet := &Packet{
		Type:      PacketTypeEvent,
		Namespace: s.namespace.name,
		Data:      args,
	}

	return s.sendPacket(packet)
}

// OnAny registers an event handler. Handlers run on the connection's read
// goroutine, so events from one client are handled in arrival order and a
// slow handler delays the next event of that client.
func (s *Socket) OnAny(handler AnyHandler) {
	s.handlersMu.Lock()
	s.anyHandlers = append(s.anyHandlers, handler)
	s.handlersMu.Unlock()
}

// Join adds the socket to a room
func (s *Socket) Join(room string) {
	s.roomsMu.Lock()
	s.rooms[room] = true
	s.roomsMu.Unlock()

	s.namespace.adapter.Add(s.id, room)
}

// Leave removes the socket from a room
func (s *Socket) Leave(room string) {
	s.roomsMu.Lock()
	delete(s.rooms, room)
	s.roomsMu.Unlock()

	s.namespace.adapter.Remove(s.id, room)
}

// Rooms returns all rooms the socket is in
func (s *Socket) Rooms() []string {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()

	rooms := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// OnDisconnect registers a disconnect handler. Disconnect handlers run after
// the socket left all of its rooms.
func (s *Socket) OnDisconnect(handler func(string)) {
	s.disconnectMu.Lock()
	s.onDisconnect = append(s.onDisconnect, handler)
	s.disconnectMu.Unlock()
}

// Disconnect disconnects the socket
func (s *Socket) Disconnect() {
	s.session.Close("server disconnect")
}

func (s *Socket) sendPacket(packet *Packet) error {
	encoded, err := packet.Encode()
	if err != nil {
		return err
	}

	return s.session.Send(&engineio.Packet{
		Type: engineio.PacketTypeMessage,
		Data: []byte(encoded),
	})
}

func (s *Socket) handleMessage(data []byte) {
	packet, err := DecodePacket(string(data))
	if err != nil {
		s.namespace.log.Debug("dropping malformed socket.io packet", "sid", s.id, "error", err)
		return
	}

	switch packet.Type {
	case PacketTypeEvent:
		s.handleEvent(packet)
	case PacketTypeDisconnect:
		s.Disconnect()
	}
}

func (s *Socket) handleEvent(packet *Packet) {
	dataArray, ok := packet.Data.([]interface{})
	if !ok || len(dataArray) == 0 {
		return
	}

	event, ok := dataArray[0].(string)
	if !ok {
		return
	}

	args := dataArray[1:]

	if packet.ID != nil {
		ackFunc := func(ackData ...interface{}) {
			ackPacket := &Packet{
				Type:      PacketTypeAck,
				Namespace: s.namespace.name,
				Data:      ackData,
				ID:        packet.ID,
			}
			_ = s.sendPacket(ackPacket)
		}
		args = append(args, ackFunc)
	}

	s.handlersMu.RLock()
	handlers := s.anyHandlers
	s.handlersMu.RUnlock()

	for _, handler := range handlers {
		handler(event, args...)
	}
}

func (s *Socket) handleClose(reason string) {
	for _, room := range s.Rooms() {
		s.Leave(room)
	}

	s.disconnectMu.RLock()
	handlers := s.onDisconnect
	s.disconnectMu.RUnlock()

	for _, handler := range handlers {
		handler(reason)
	}

	s.namespace.removeSocket(s.id)
}
