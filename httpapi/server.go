package httpapi

import (
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/gorilla/websocket"

	"pkt.systems/periscope/internal/logx"
	"pkt.systems/pslog"
)

// Server serves the viewer bundle, the health endpoint, and the push
// channel upgrade.
type Server struct {
	cfg      Config
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer constructs an HTTP server around the hub.
func NewServer(cfg Config, hub *Hub) *Server {
	cfg = cfg.Normalize()
	return &Server{
		cfg: cfg,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The server binds to loopback by default; origin checks
			// add nothing there and break port-forwarded setups.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return withRequestLogging(mux)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data, err := fs.ReadFile(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.ClientCount(),
	})
}

// handleWS upgrades the request and ties the connection's lifetime to
// its read loop: a read error of any kind detaches the viewer.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	log := pslog.Ctx(r.Context()).With("remote", clientIP(r))
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade failed", "err", err)
		return
	}
	conn := newWSConn(sock, s.cfg.SendBuffer, pslog.Ctx(r.Context()))
	log = logx.WithConn(r.Context(), conn.ID()).With("remote", clientIP(r))
	s.hub.Attach(conn)
	defer s.hub.Detach(conn)

	for {
		msgType, data, err := sock.ReadMessage()
		if err != nil {
			log.Debug("ws read closed", "err", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		s.hub.RouteInbound(r.Context(), conn, data)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
