// Package periscope mirrors the live state of one interactive agent
// session onto passive remote viewers over a push channel. The host
// process that owns the session engine embeds a Server, publishes
// authoritative events through its Sink, and registers an Engine to
// receive viewer input.
package periscope

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/periscope/core"
	"pkt.systems/periscope/httpapi"
	"pkt.systems/pslog"
)

// ServerConfig configures the compositor.
type ServerConfig struct {
	HTTP httpapi.Config
}

// ServerDeps captures dependencies supplied by the host process.
type ServerDeps struct {
	// Engine receives viewer-originated input. May be set later via
	// SetEngine, before viewers are expected to interact.
	Engine core.Engine
	// ExtraSinks receive every authoritative event in addition to the
	// broadcast hub (for example an audit log).
	ExtraSinks []core.EventSink
	Logger     pslog.Logger
}

// Server composes the session state owner, the broadcast hub, and the
// HTTP surface.
type Server struct {
	cfg     ServerConfig
	session *core.Session
	hub     *httpapi.Hub
	sink    core.EventSink
	logger  pslog.Logger

	mu      sync.Mutex
	port    int
	started bool
	cancel  context.CancelFunc
	errCh   chan error
}

// New constructs a server. The session is owned here; no ambient state.
func New(cfg ServerConfig, deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	cfg.HTTP = cfg.HTTP.Normalize()
	session := core.NewSession()
	hub := httpapi.NewHub(session, cfg.HTTP.Welcome, logger)
	if deps.Engine != nil {
		hub.SetEngine(deps.Engine)
	}

	var sink core.EventSink = hub
	if len(deps.ExtraSinks) > 0 {
		sinks := append([]core.EventSink{hub}, deps.ExtraSinks...)
		sink = eventFanout{sinks: sinks}
	}

	return &Server{
		cfg:     cfg,
		session: session,
		hub:     hub,
		sink:    sink,
		logger:  logger,
	}
}

// Sink returns the event sink the session engine publishes through.
func (s *Server) Sink() core.EventSink {
	return s.sink
}

// SetEngine registers the session engine handlers for viewer input.
func (s *Server) SetEngine(engine core.Engine) {
	s.hub.SetEngine(engine)
}

// Hub exposes the broadcast hub, mainly for health and tests.
func (s *Server) Hub() *httpapi.Hub {
	return s.hub
}

// Start binds the listener and begins serving. On a bind conflict the
// listener falls back to an ephemeral port; Port reports the port that
// was actually bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("server already started")
	}

	listener, port, err := httpapi.Listen(ctx, s.cfg.HTTP.Host, s.cfg.HTTP.Port)
	if err != nil {
		return err
	}
	s.port = port

	serveCtx, cancel := context.WithCancel(pslog.ContextWithLogger(ctx, s.logger))
	s.cancel = cancel
	s.errCh = make(chan error, 1)
	handler := httpapi.NewServer(s.cfg.HTTP, s.hub).Handler()
	go func() {
		s.errCh <- httpapi.Serve(serveCtx, listener, handler)
	}()
	s.started = true
	return nil
}

// Port returns the actually bound port; zero before Start.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Wait blocks until the server stops serving.
func (s *Server) Wait() error {
	s.mu.Lock()
	errCh := s.errCh
	s.mu.Unlock()
	if errCh == nil {
		return errors.New("server not started")
	}
	return <-errCh
}

// Stop shuts the server down. Attached viewers are disconnected by the
// transport; nothing is queued or retried for them.
func (s *Server) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
