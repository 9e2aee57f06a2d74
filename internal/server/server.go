// Package server exposes the Twilio webhook and health endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/keepsake-bot/keepsake/internal/metrics"
)

// Server is the inbound HTTP surface. It accepts Twilio webhooks, creates
// jobs and hands their IDs to the queue; all real work happens in workers.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the HTTP server around the webhook handler.
func New(port int, webhook *WebhookHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")
	collector := metrics.NewCollector()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	// Stats cover webhook handling in this process only. Job and delivery
	// timings belong to the worker's collector, which logs its snapshot on
	// shutdown.
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(collector.Snapshot())
	})
	r.Post("/webhook", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		webhook.Handle(w, req)
		collector.RecordTiming(metrics.OpWebhook, time.Since(start))
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}
