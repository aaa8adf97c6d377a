package engineio

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrSlowClient    = errors.New("slow client")
)

// Config holds Engine.IO server configuration
type Config struct {
	PingInterval int // milliseconds
	PingTimeout  int // milliseconds
	MaxPayload   int // bytes

	// AllowedOrigins lists the browser origins allowed to open a session.
	// "*" (or an empty list) allows every origin.
	AllowedOrigins []string

	Logger *slog.Logger
}

// DefaultConfig returns default Engine.IO configuration
func DefaultConfig() *Config {
	return &Config{
		PingInterval:   25000, // 25 seconds
		PingTimeout:    20000, // 20 seconds
		MaxPayload:     1e6,   // 1MB
		AllowedOrigins: []string{"*"},
	}
}

// Server represents an Engine.IO server
type Server struct {
	config    *Config
	log       *slog.Logger
	upgrader  websocket.Upgrader
	sessions  sync.Map
	onConnect func(*Session)
}

// NewServer creates a new Engine.IO server
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		config: config,
		log:    log.With("component", "engineio"),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return s
}

// ServeHTTP handles HTTP requests and upgrades to WebSocket
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle WebSocket upgrade
	if r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "Only WebSocket transport is supported", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if s.config.MaxPayload > 0 {
		conn.SetReadLimit(int64(s.config.MaxPayload))
	}

	sid := generateSID()
	session := NewSession(sid, conn, s)

	s.sessions.Store(sid, session)

	handshake, err := EncodeHandshake(sid, s.config.PingInterval, s.config.PingTimeout, s.config.MaxPayload)
	if err != nil {
		conn.Close()
		s.sessions.Delete(sid)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, handshake); err != nil {
		conn.Close()
		s.sessions.Delete(sid)
		return
	}

	session.OnClose(func(reason string) {
		s.sessions.Delete(sid)
		s.log.Debug("session closed", "sid", sid, "reason", reason)
	})

	s.log.Debug("session opened", "sid", sid, "remote", r.RemoteAddr)

	if s.onConnect != nil {
		s.onConnect(session)
	}

	// Loops start after the connect handler so that upper layers have
	// registered their message handlers before the first frame is read.
	session.Start()
}

// OnConnect sets the connection handler
func (s *Server) OnConnect(fn func(*Session)) {
	s.onConnect = fn
}

// GetSession retrieves a session by ID
func (s *Server) GetSession(sid string) (*Session, bool) {
	val, ok := s.sessions.Load(sid)
	if !ok {
		return nil, false
	}
	return val.(*Session), true
}

// Close closes all sessions
func (s *Server) Close() {
	s.sessions.Range(func(key, value interface{}) bool {
		session := value.(*Session)
		session.Close("server shutdown")
		return true
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	return OriginAllowed(origin, s.config.AllowedOrigins)
}

// OriginAllowed reports whether a browser Origin header value matches the
// allow-list. Matching is case-insensitive on scheme://host[:port].
func OriginAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if c, ok := normalizeOrigin(candidate); ok && c == normalized {
			return true
		}
	}
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}

func generateSID() string {
	return uuid.NewString()
}
