// Package server exposes the caster's hubs over HTTP.
//
//	GET /                         player page
//	GET /stream, /stream.mp3      raw MP3
//	GET /stream.opus, /stream.ogg Ogg-framed Opus
//	GET /ws                       WebSocket, one Opus packet per message
//	GET /status                   {"clients": n, "running": bool}
//
// Every listener gets its own writer goroutine (the request handler) and its
// own broadcast.Subscriber. A write that misses its deadline ends that
// listener only.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/loopcast/loopcast/pkg/audio/codec/ogg"
	"github.com/loopcast/loopcast/pkg/caster"
)

// DefaultWriteTimeout bounds each write to a listener.
const DefaultWriteTimeout = 10 * time.Second

// DefaultShutdownTimeout bounds the wait for handlers on shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Server is the HTTP front end of a Caster.
type Server struct {
	caster          *caster.Caster
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	serials         *ogg.Serials
}

// Option configures a Server.
type Option func(*Server)

// WithWriteTimeout sets the per-write deadline for listeners.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithShutdownTimeout sets how long Serve waits for handlers to finish.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Server for c.
func New(c *caster.Caster, opts ...Option) *Server {
	s := &Server{
		caster:          c,
		writeTimeout:    DefaultWriteTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          slog.Default(),
		serials:         ogg.NewSerials(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := Classify(r.URL.Path)
	if route == RouteUnknown {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	switch route {
	case RouteIndex:
		s.handleIndex(w, r)
	case RouteStatus:
		s.handleStatus(w, r)
	case RouteMP3:
		s.handleMP3(w, r)
	case RouteOgg:
		s.handleOgg(w, r)
	case RouteWebSocket:
		s.handleWebSocket(w, r)
	}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. Listeners end when their hub closes or the shutdown timeout
// passes, whichever comes first.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("server: listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("server: forced shutdown", "error", err)
		srv.Close()
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) deadline() time.Time {
	return time.Now().Add(s.writeTimeout)
}
