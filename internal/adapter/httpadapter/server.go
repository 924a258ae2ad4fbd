package httpadapter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxCommandBytes bounds POST /command bodies.
const maxCommandBytes = 1 << 10

// Commander answers free-text query commands.
type Commander interface {
	Execute(ctx context.Context, text string) (string, error)
}

// Server exposes health, readiness, metrics, and command HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// POST /command routes. A nil commander leaves /command unregistered.
func NewServer(addr string, ready sharedobs.ReadinessChecker, cmd Commander, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if cmd != nil {
		mux.HandleFunc("POST /command", s.handleCommand(cmd))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleCommand takes the command as a plain-text body and replies with the
// plain-text report.
func (s *Server) handleCommand(cmd Commander) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBytes))
		if err != nil {
			http.Error(w, "command too long", http.StatusRequestEntityTooLarge)
			return
		}

		text := strings.TrimSpace(string(body))
		reply, err := cmd.Execute(r.Context(), text)
		if err != nil {
			s.logger.Error("command failed", "command", text, "error", err)
			http.Error(w, "command failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, reply+"\n")
	}
}
