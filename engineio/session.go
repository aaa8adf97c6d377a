package engineio

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Session represents an Engine.IO session
type Session struct {
	id           string
	conn         *websocket.Conn
	server       *Server
	outgoing     chan *Packet
	pingTimer    *time.Timer
	pingTimeout  *time.Timer
	timersMu     sync.Mutex
	closeOnce    sync.Once
	closed       chan struct{}
	mu           sync.RWMutex
	onMessage    func([]byte)
	onClose      []func(string)
	lastActivity time.Time
}

// NewSession creates a new Engine.IO session
func NewSession(id string, conn *websocket.Conn, server *Server) *Session {
	return &Session{
		id:           id,
		conn:         conn,
		server:       server,
		outgoing:     make(chan *Packet, 256),
		closed:       make(chan struct{}),
		lastActivity: time.Now(),
	}
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Start starts the session loops
func (s *Session) Start() {
	go s.writeLoop()
	go s.readLoop()
	s.schedulePing()
}

// Send queues a packet for the client. It never blocks: a full queue
// reports ErrSlowClient.
func (s *Session) Send(packet *Packet) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case s.outgoing <- packet:
		return nil
	case <-s.closed:
		return ErrSessionClosed
	default:
		return ErrSlowClient
	}
}

// Close closes the session. Close handlers run once, in registration order.
func (s *Session) Close(reason string) {
	s.closeOnce.Do(func() {
		close(s.closed)

		s.timersMu.Lock()
		if s.pingTimer != nil {
			s.pingTimer.Stop()
		}
		if s.pingTimeout != nil {
			s.pingTimeout.Stop()
		}
		s.timersMu.Unlock()

		packet := &Packet{Type: PacketTypeClose}
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = s.conn.WriteMessage(websocket.TextMessage, packet.Encode())
		_ = s.conn.Close()

		s.mu.RLock()
		handlers := append([]func(string){}, s.onClose...)
		s.mu.RUnlock()

		for _, handler := range handlers {
			handler(reason)
		}
	})
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// OnMessage sets the message handler
func (s *Session) OnMessage(fn func([]byte)) {
	s.mu.Lock()
	s.onMessage = fn
	s.mu.Unlock()
}

// OnClose registers a close handler
func (s *Session) OnClose(fn func(string)) {
	s.mu.Lock()
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// LastActivity returns the time of the last frame received from the client.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

func (s *Session) readLoop() {
	defer s.Close("transport close")

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.server.log.Debug("read error", "sid", s.id, "error", err)
			}
			return
		}

		s.updateActivity()

		packet, err := DecodePacket(data)
		if err != nil {
			s.server.log.Debug("dropping malformed packet", "sid", s.id, "error", err)
			continue
		}

		s.handlePacket(packet)
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case packet := <-s.outgoing:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, packet.Encode()); err != nil {
				s.Close("write error")
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *Session) handlePacket(packet *Packet) {
	switch packet.Type {
	case PacketTypePing:
		s.handlePing()
	case PacketTypePong:
		s.handlePong()
	case PacketTypeMessage:
		s.handleMessage(packet.Data)
	case PacketTypeClose:
		s.Close("client closed")
	}
}

func (s *Session) handlePing() {
	_ = s.Send(&Packet{Type: PacketTypePong})
}

func (s *Session) handlePong() {
	s.timersMu.Lock()
	if s.pingTimeout != nil {
		s.pingTimeout.Stop()
	}
	s.timersMu.Unlock()
	s.schedulePing()
}

func (s *Session) handleMessage(data []byte) {
	s.mu.RLock()
	handler := s.onMessage
	s.mu.RUnlock()

	if handler != nil {
		handler(data)
	}
}

func (s *Session) schedulePing() {
	interval := time.Duration(s.server.config.PingInterval) * time.Millisecond
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	select {
	case <-s.closed:
		return
	default:
	}
	s.pingTimer = time.AfterFunc(interval, func() {
		_ = s.Send(&Packet{Type: PacketTypePing})
		s.schedulePingTimeout()
	})
}

func (s *Session) schedulePingTimeout() {
	timeout := time.Duration(s.server.config.PingTimeout) * time.Millisecond
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	select {
	case <-s.closed:
		return
	default:
	}
	s.pingTimeout = time.AfterFunc(timeout, func() {
		s.Close("ping timeout")
	})
}

func (s *Session) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}
