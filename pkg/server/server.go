package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inkwell-dev/inkwell/pkg/kernel"
	"github.com/inkwell-dev/inkwell/pkg/middleware"
	"github.com/inkwell-dev/inkwell/pkg/protocol"
	"github.com/inkwell-dev/inkwell/pkg/snapshot"
	"github.com/inkwell-dev/inkwell/pkg/widget"
)

// Server is the HTTP front of the widget runtime: a websocket endpoint
// for clients plus health and metrics surfaces.
type Server struct {
	cfg     Config
	manager *Manager
	store   snapshot.Store
	logger  *slog.Logger
	metrics *SessionMetrics

	// dialKernel opens the kernel connection for a new session.
	// Overridable under test.
	dialKernel func() (kernel.Conn, error)
}

// New builds a server. store may be nil to disable snapshots.
func New(cfg Config, store snapshot.Store) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	metrics := cfg.Session.Metrics
	if metrics == nil {
		metrics = NewSessionMetrics(cfg.Registerer)
		cfg.Session.Metrics = metrics
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = cfg.Logger
	}
	s := &Server{
		cfg:     cfg,
		manager: NewManager(cfg.MaxSessions),
		store:   store,
		logger:  cfg.Logger,
		metrics: metrics,
	}
	s.dialKernel = s.dialKernelWS
	return s
}

// Manager exposes the session manager, mainly for tests and the stats
// endpoint.
func (s *Server) Manager() *Manager { return s.manager }

// Handler returns the routed HTTP surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Prometheus(middleware.WithRegistry(s.cfg.Registerer)))
	r.Use(middleware.OpenTelemetry())

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWS)
	return r
}

// ListenAndServe runs the server until ctx is canceled, then drains
// sessions and shuts down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweep := time.NewTicker(s.cfg.SweepInterval)
	defer sweep.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sweep.C:
				if n := s.manager.CloseIdle(s.cfg.Session.IdleTimeout); n > 0 {
					s.logger.Info("swept idle sessions", "count", n)
				}
			}
		}
	}()

	errC := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	s.manager.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.manager.Len(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.manager.Stats())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	sess := NewSession(conn, s.cfg.Session)
	if err := s.manager.Add(sess); err != nil {
		s.logger.Warn("session rejected", "err", err)
		_ = conn.Close()
		return
	}
	if s.metrics != nil {
		s.metrics.SessionsStarted.Inc()
		s.metrics.ActiveSessions.Inc()
	}
	s.logger.Info("session started", "session", sess.ID, "remote", r.RemoteAddr)

	// The opening hello may carry a resume token naming an earlier
	// session whose values should seed the registry.
	// The request context dies when this handler returns because the
	// connection is hijacked, so the session runs on its own context.
	ctx := context.Background()

	// Runs on the event loop, where seeding the registry is safe.
	sess.onHello = func(h *protocol.Hello) {
		if h.ResumeToken != "" {
			s.resume(ctx, sess, h.ResumeToken)
		}
	}

	var link *kernel.Link
	if s.cfg.KernelURL != "" {
		kconn, err := s.dialKernel()
		if err != nil {
			s.logger.Warn("kernel unreachable, session runs unlinked",
				"session", sess.ID, "err", err)
		} else {
			link = s.attachKernel(sess, kconn)
		}
	}

	go sess.readLoop()
	go func() {
		sess.Run(ctx)
		if link != nil {
			link.Close()
		}
		s.finish(sess)
	}()
}

// attachKernel wires a kernel link into the session. Must run before
// the session loop starts.
func (s *Server) attachKernel(sess *Session, conn kernel.Conn) *kernel.Link {
	reg := sess.Registry()
	link := kernel.NewLink(kernel.LinkConfig{
		Conn:     conn,
		Source:   reg.LookupValue,
		Dispatch: sess.Dispatch,
		OnMessage: func(id widget.ObjectID, message any, buffers [][]byte) {
			reg.BroadcastMessage(id, message, buffers)
		},
		OnPurge: sess.PurgeOwner,
		Logger:  s.logger.With("session", sess.ID),
	})
	sess.AttachKernel(link)
	go link.ReadLoop()
	return link
}

func (s *Server) resume(ctx context.Context, sess *Session, token string) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	values, err := s.store.Load(ctx, token)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNotFound) {
			s.logger.Warn("snapshot load failed", "session", sess.ID, "err", err)
		}
		return
	}
	sess.Resume(values)
	s.logger.Info("session resumed", "session", sess.ID, "values", len(values))
}

// finish persists the session's values and removes it from the
// manager. Runs after the event loop has exited, so the registry is
// safe to read.
func (s *Server) finish(sess *Session) {
	if s.store != nil {
		values := sess.Registry().Values()
		raw := make(map[string]json.RawMessage, len(values))
		for id, v := range values {
			data, err := json.Marshal(v)
			if err != nil {
				s.logger.Warn("skipping unencodable snapshot value",
					"session", sess.ID, "id", id, "err", err)
				continue
			}
			raw[string(id)] = data
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.Save(ctx, sess.ID, raw); err != nil {
			s.logger.Warn("snapshot save failed", "session", sess.ID, "err", err)
		}
	}
	s.manager.Remove(sess.ID)
	if s.metrics != nil {
		s.metrics.SessionsClosed.Inc()
		s.metrics.ActiveSessions.Dec()
	}
	s.logger.Info("session closed", "session", sess.ID)
}

func (s *Server) dialKernelWS() (kernel.Conn, error) {
	conn, _, err := websocketDial(s.cfg.KernelURL)
	return conn, err
}
