package socketio

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ramory-l/sigrelay/engineio"
)

// DefaultPath is the HTTP path prefix Socket.IO clients connect to.
const DefaultPath = "/socket.io/"

// Server represents a Socket.IO server
type Server struct {
	eio        *engineio.Server
	namespaces map[string]*Namespace
	nsMu       sync.RWMutex
	path       string
	log        *slog.Logger
}

// Config represents Socket.IO server configuration
type Config struct {
	PingInterval   int // milliseconds
	PingTimeout    int // milliseconds
	MaxPayload     int // bytes
	AllowedOrigins []string
	Path           string
	Logger         *slog.Logger
}

// NewServer creates a new Socket.IO server
func NewServer(config *Config) *Server {
	eioConfig := engineio.DefaultConfig()
	path := DefaultPath
	log := slog.Default()

	if config != nil {
		if config.PingInterval > 0 {
			eioConfig.PingInterval = config.PingInterval
		}
		if config.PingTimeout > 0 {
			eioConfig.PingTimeout = config.PingTimeout
		}
		if config.MaxPayload > 0 {
			eioConfig.MaxPayload = config.MaxPayload
		}
		if config.AllowedOrigins != nil {
			eioConfig.AllowedOrigins = config.AllowedOrigins
		}
		if config.Path != "" {
			path = config.Path
		}
		if config.Logger != nil {
			log = config.Logger
		}
	}
	eioConfig.Logger = log
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	server := &Server{
		eio:        engineio.NewServer(eioConfig),
		namespaces: make(map[string]*Namespace),
		path:       path,
		log:        log.With("component", "socketio"),
	}

	// Create default namespace
	server.Of("/")

	server.eio.OnConnect(server.handleConnection)

	return server
}

// Of returns a namespace, creating it if it doesn't exist
func (s *Server) Of(name string) *Namespace {
	if name == "" {
		name = "/"
	}

	s.nsMu.RLock()
	ns, exists := s.namespaces[name]
	s.nsMu.RUnlock()

	if exists {
		return ns
	}

	s.nsMu.Lock()
	defer s.nsMu.Unlock()

	// Double-check after acquiring write lock
	if ns, exists := s.namespaces[name]; exists {
		return ns
	}

	ns = NewNamespace(name, s)
	s.namespaces[name] = ns

	return ns
}

// Path returns the HTTP path prefix served by the server.
func (s *Server) Path() string {
	return s.path
}

// OnConnect sets the connection handler for the default namespace
func (s *Server) OnConnect(handler func(*Socket)) {
	s.Of("/").OnConnect(handler)
}

// Emit broadcasts to all clients in the default namespace
func (s *Server) Emit(event string, data ...interface{}) error {
	return s.Of("/").Emit(event, data...)
}

// To returns a BroadcastOperator for the default namespace
func (s *Server) To(rooms ...string) *BroadcastOperator {
	return s.Of("/").To(rooms...)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, s.path) {
		http.NotFound(w, r)
		return
	}

	s.eio.ServeHTTP(w, r)
}

// Close closes the server and all connections
func (s *Server) Close() error {
	s.eio.Close()

	s.nsMu.RLock()
	defer s.nsMu.RUnlock()

	for _, ns := range s.namespaces {
		ns.adapter.Close()
	}

	return nil
}

func (s *Server) handleConnection(session *engineio.Session) {
	// Sessions always attach to the root namespace.
	s.Of("/").addSocket(session)
}
