// Package debugsrv serves the running application's state over HTTP.
package debugsrv

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jask/tealens/internal/lifecycle"
	"github.com/jask/tealens/internal/store"
)

// Runner runs fn on the goroutine that owns the store and waits for it.
type Runner func(ctx context.Context, fn func()) error

// target is what the debug hook captured from the latest launch. Its
// functions must run through the Runner.
type target struct {
	generation string
	state      func() any
	reset      func()
	subs       func() int
}

// Server exposes state, app info and metrics.
type Server struct {
	run      Runner
	gatherer prometheus.Gatherer
	log      *slog.Logger

	mu       sync.Mutex
	target   *target
	launches int
}

// New returns a server that reads state through run.
func New(run Runner, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{run: run, gatherer: gatherer, log: log}
}

// Hook returns the lifecycle debug hook feeding s. reset is the state
// POST /debug/reset restores.
func Hook[S any](s *Server, reset S) lifecycle.DebugHook[S] {
	return func(st *store.Store[S], generation string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.launches++
		s.target = &target{
			generation: generation,
			state:      func() any { return st.Get() },
			reset:      func() { st.Set(reset) },
			subs:       st.Subscribers,
		}
	}
}

func (s *Server) current() *target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// AppInfo is the body of GET /debug/app.
type AppInfo struct {
	Generation  string `json:"generation"`
	Launches    int    `json:"launches"`
	Subscribers int    `json:"subscribers"`
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	d := r.Group("/debug")
	d.GET("/state", s.handleState)
	d.GET("/app", s.handleApp)
	d.POST("/reset", s.handleReset)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	return r
}

func (s *Server) onLoop(c *gin.Context, fn func(t *target)) bool {
	t := s.current()
	if t == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no app running"})
		return false
	}
	if err := s.run(c.Request.Context(), func() { fn(t) }); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) handleState(c *gin.Context) {
	var state any
	if s.onLoop(c, func(t *target) { state = t.state() }) {
		c.JSON(http.StatusOK, state)
	}
}

func (s *Server) handleApp(c *gin.Context) {
	var info AppInfo
	if s.onLoop(c, func(t *target) {
		info.Generation = t.generation
		info.Subscribers = t.subs()
	}) {
		s.mu.Lock()
		info.Launches = s.launches
		s.mu.Unlock()
		c.JSON(http.StatusOK, info)
	}
}

func (s *Server) handleReset(c *gin.Context) {
	if s.onLoop(c, func(t *target) { t.reset() }) {
		s.log.Info("state reset over debug server")
		c.Status(http.StatusNoContent)
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("debug server listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
