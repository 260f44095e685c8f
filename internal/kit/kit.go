// Package kit provides the base HTTP server, middleware chain, and response
// helpers shared by the kiosk surface and the backend twin.
package kit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Config holds the common server configuration.
type Config struct {
	Port    int
	Latency time.Duration // simulated latency, twin only
	Verbose bool
	Name    string // service name for logging
}

// Server wraps a chi router with common middleware and lifecycle management.
type Server struct {
	Config *Config
	Router *chi.Mux
	Logger *slog.Logger
}

// NewServer creates a Server with the common middleware stack mounted.
func NewServer(cfg *Config) *Server {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With("service", cfg.Name)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(CORS)
	r.Use(RequestLog(logger))
	r.Use(LatencyInjection(cfg))

	return &Server{
		Config: cfg,
		Router: r,
		Logger: logger,
	}
}

// Serve starts the HTTP server and blocks until a shutdown signal.
func (s *Server) Serve() error {
	addr := fmt.Sprintf(":%d", s.Config.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.Logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-done
	s.Logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// ServeHTTP implements http.Handler so Server can be used directly in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error writes the flat {"error": message} body that clients parse.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
