package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/shimmerhq/anyproxy/internal/config"
	"github.com/shimmerhq/anyproxy/internal/handlers"
	"github.com/shimmerhq/anyproxy/internal/httpclient"
	"github.com/shimmerhq/anyproxy/internal/middleware"
	"github.com/shimmerhq/anyproxy/internal/observability"
)

type Server struct {
	config         *config.Manager
	edge           *handlers.Edge
	logger         *slog.Logger
	server         *http.Server
	tracerShutdown observability.ShutdownFunc
}

func New(configManager *config.Manager, logger *slog.Logger) *Server {
	edge := handlers.NewEdge(configManager, httpclient.New(), logger)

	tracer, shutdown, err := observability.NewTracer(context.Background(), configManager.Get().OTELEndpoint)
	if err != nil {
		logger.Warn("failed to set up tracer, continuing without tracing", "error", err)
	} else {
		edge = edge.WithTracer(tracer)
	}

	return &Server{
		config:         configManager,
		edge:           edge,
		logger:         logger,
		tracerShutdown: shutdown,
	}
}

func (s *Server) Start() error {
	cfg := s.config.Get()
	if cfg == nil {
		return errors.New("configuration not loaded")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 30 * time.Second,
	}

	s.logger.Info("Starting server", "address", addr)

	errCh := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.logger.Error("Server error", "error", err)
		if strings.Contains(err.Error(), "address already in use") {
			s.logger.Error("Port already bound; check for another anyproxy instance",
				"address", addr,
				"hint", fmt.Sprintf("lsof -i :%d", cfg.Port))
		}
		return err
	case <-quit:
	}

	s.logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if s.tracerShutdown != nil {
		if err := s.tracerShutdown(ctx); err != nil {
			s.logger.Warn("tracer shutdown failed", "error", err)
		}
	}

	s.logger.Info("Server exited")

	return nil
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-API-Key", "anthropic-version"},
		MaxAge:           300,
		AllowCredentials: false,
	}))

	middlewareSet := middleware.NewMiddlewareSet(s.config, s.logger)
	healthHandler := handlers.NewHealthHandler(s.logger)

	r.Handle("/health", middlewareSet.HealthChain().Handler(healthHandler))

	r.Group(func(r chi.Router) {
		r.Use(middlewareSet.DefaultChain().Handler)

		r.Post("/v1/messages", s.edge.Messages)

		if cfg := s.config.Get(); cfg != nil && cfg.ServesOEndpoint() {
			r.Post("/v1/chat/completions", s.edge.ChatCompletions)
		}
	})

	return r
}
