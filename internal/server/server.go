// Package server exposes the companion's admin HTTP surface: health, metrics,
// status, and the operator actions a desktop overlay would otherwise own.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/danmuck/assurance/internal/agent"
	"github.com/danmuck/assurance/internal/clientlog"
	logs "github.com/danmuck/assurance/internal/logging"
	"github.com/danmuck/assurance/internal/observability"
	"github.com/danmuck/assurance/internal/presentation"
)

const (
	DefaultAddr            = "127.0.0.1:9300"
	DefaultShutdownTimeout = 5 * time.Second
	Version                = "0.1.0"
)

var ErrMissingBackend = errors.New("server: backend is required")

// Backend is the agent surface the routes drive.
type Backend interface {
	HandleDeepLink(raw string) error
	HandleEvent(h agent.HostEvent) error
	Status() agent.Status
}

// Console is the operator side of the presentation.
type Console interface {
	SubmitPIN(pin string) bool
	Cancel() bool
	Disconnect() bool
	ClientLogs(floor clientlog.Visibility) []clientlog.Message
	View() presentation.View
}

type Config struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

type Server struct {
	cfg     Config
	backend Backend
	console Console
	router  *gin.Engine
	started time.Time
}

// New builds the router. console may be nil when no operator UI is wired.
func New(cfg Config, backend Backend, console Console) (*Server, error) {
	if backend == nil {
		return nil, ErrMissingBackend
	}
	observability.RegisterMetrics()
	cfg = cfg.WithDefaults()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.ComponentLogger("server")))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:     cfg,
		backend: backend,
		console: console,
		router:  r,
		started: time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logs.Infof("server.Server.Serve listening addr=%s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logs.Warnf("server.Server.Serve shutdown err=%v", err)
		return err
	}
	logs.Infof("server.Server.Serve stopped addr=%s", ln.Addr())
	return nil
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
