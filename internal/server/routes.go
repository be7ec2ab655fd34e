package server

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ArnoKim89/arno-game-server/internal/ratelimit"
	"github.com/ArnoKim89/arno-game-server/internal/registry"
	"github.com/ArnoKim89/arno-game-server/internal/signaling"
)

// Options tunes the transport.
type Options struct {
	// MaxMessageSize caps inbound websocket messages.
	MaxMessageSize int64

	// SendQueue is the per-connection outbound frame buffer.
	SendQueue int
}

// Server exposes the hub over websockets and the registry over HTTP.
type Server struct {
	hub      *signaling.Hub
	registry *registry.Registry
	limiter  ratelimit.Limiter
	logger   *slog.Logger

	maxMessageSize int64
	sendQueue      int
	upgrader       websocket.Upgrader
}

// New creates a server. limiter throttles registry create/join calls and may be nil.
func New(hub *signaling.Hub, reg *registry.Registry, limiter ratelimit.Limiter, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	return &Server{
		hub:            hub,
		registry:       reg,
		limiter:        limiter,
		logger:         logger,
		maxMessageSize: opts.MaxMessageSize,
		sendQueue:      opts.SendQueue,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			// Game clients connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.ServeWs)
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.stats).Methods(http.MethodGet)

	r.HandleFunc("/api/room/create", s.createRoom).Methods(http.MethodGet)
	r.HandleFunc("/api/room/join", s.joinRoom).Methods(http.MethodGet)
	r.HandleFunc("/room/create", s.claimRoom).Methods(http.MethodPost)

	r.HandleFunc("/api/signal/{code}", s.postSignal).Methods(http.MethodPost)
	r.HandleFunc("/api/signal/{code}", s.pollSignals).Methods(http.MethodGet)

	// Legacy game clients connect to the root path.
	r.HandleFunc("/", s.root)

	return r
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.ServeWs(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Relay hub is running."))
}

// ServeWs upgrades the request and hands the connection to the hub.
func (s *Server) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("failed to upgrade connection", "error", err)
		return
	}

	ep := newEndpoint(conn, s.sendQueue)
	client := signaling.NewClient(uuid.NewString(), clientIP(r), ep)

	if !s.hub.Register(client) {
		ep.Close()
		return
	}

	go s.writePump(client, ep)
	go s.readPump(client, ep)
}

// clientIP is the first X-Forwarded-For hop, else the remote address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
