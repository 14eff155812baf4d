// Package web serves perception sessions over WebSocket and exposes a
// small REST API for status, session control and tuning.
package web

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-cockpit/internal/log"
	"github.com/teslashibe/go-cockpit/pkg/hub"
	"github.com/teslashibe/go-cockpit/pkg/journal"
	"github.com/teslashibe/go-cockpit/pkg/perception"
)

// Recorder persists emitted events. *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, sessionID, user string, batch perception.EventBatch) error
	Recent(ctx context.Context, user string, limit int) ([]journal.Entry, error)
}

// Options configures a Server
type Options struct {
	Config  perception.Config       // defaults to perception.DefaultConfig()
	Journal Recorder                // optional
	Refiner perception.PupilRefiner // optional pixel-level pupil refinement
}

// Server hosts perception sessions
type Server struct {
	app     *fiber.App
	addr    string
	started time.Time

	// Config for sessions created from now on
	cfg   perception.Config
	cfgMu sync.RWMutex

	sessions   *Registry
	sessionHub *hub.Hub // one client per /ws/session connection
	eventHub   *hub.Hub // /ws/events subscribers

	journal Recorder
	refiner perception.PupilRefiner

	frames   atomic.Uint64
	rejected atomic.Uint64
	counts   eventCounters
}

type eventCounters struct {
	mu     sync.Mutex
	byKind map[perception.EventKind]uint64
}

func (e *eventCounters) add(batch perception.EventBatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range batch.Events {
		e.byKind[ev.Kind()]++
	}
}

func (e *eventCounters) snapshot() (map[perception.EventKind]uint64, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[perception.EventKind]uint64, len(e.byKind))
	var total uint64
	for k, v := range e.byKind {
		out[k] = v
		total += v
	}
	return out, total
}

// NewServer creates a new perception server
func NewServer(addr string, opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == (perception.Config{}) {
		cfg = perception.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		addr:       addr,
		started:    time.Now(),
		cfg:        cfg,
		sessions:   NewRegistry(),
		sessionHub: hub.New("sessions"),
		eventHub:   hub.New("events"),
		journal:    opts.Journal,
		refiner:    opts.Refiner,
		counts:     eventCounters{byKind: make(map[perception.EventKind]uint64)},
	}

	app := fiber.New(fiber.Config{
		AppName:               "Cockpit Perception",
		DisableStartupMessage: true,
	})

	// CORS for local dashboards
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/sessions", s.handleListSessions)
	api.Delete("/sessions/:id", s.handleResetSession)
	api.Get("/sessions/:id/gaze", s.handleSessionGaze)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handlePutConfig)
	api.Get("/history/:user", s.handleHistory)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket routes
	app.Get("/ws/session", websocket.New(s.handleSessionWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s, nil
}

// Start runs the hubs and serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	log.Info("perception server listening", "addr", s.addr)

	go s.sessionHub.Run(ctx)
	go s.eventHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", s.addr, err)
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Config returns the config applied to new sessions
func (s *Server) Config() perception.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// SetConfig validates cfg and applies it to sessions created afterwards
func (s *Server) SetConfig(cfg perception.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
	log.Info("perception config updated")
	return nil
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
