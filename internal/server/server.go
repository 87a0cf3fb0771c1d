// Package server provides the HTTP API for running experiments and reading
// stored runs.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/limiquantix/placesim/internal/config"
	"github.com/limiquantix/placesim/internal/domain"
	"github.com/limiquantix/placesim/internal/experiment"
	"github.com/limiquantix/placesim/internal/server/middleware"
)

// Runner executes experiments on behalf of the API.
type Runner interface {
	Run(ctx context.Context, spec experiment.Spec) (*domain.ExperimentRun, error)
	Algorithms() []string
}

// HealthChecker is implemented by backing stores that can be pinged.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server represents the main HTTP server.
type Server struct {
	config config.ServerConfig
	logger *zap.Logger
	app    *fiber.App

	runner Runner
	repo   experiment.RunRepository

	// Configured experiments, listed by GET /api/v1/experiments.
	specs []experiment.Spec

	checks map[string]HealthChecker
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithHealthCheck adds a component to the readiness report.
func WithHealthCheck(name string, check HealthChecker) ServerOption {
	return func(s *Server) {
		s.checks[name] = check
	}
}

// WithExperiments sets the experiments exposed by the API.
func WithExperiments(specs []experiment.Spec) ServerOption {
	return func(s *Server) {
		s.specs = specs
	}
}

// New creates a new server instance.
func New(cfg config.ServerConfig, runner Runner, repo experiment.RunRepository, logger *zap.Logger, opts ...ServerOption) *Server {
	s := &Server{
		config: cfg,
		logger: logger.With(zap.String("component", "server")),
		runner: runner,
		repo:   repo,
		checks: make(map[string]HealthChecker),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "placesim",
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.setupMiddleware()
	s.registerRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	origins := "*"
	if len(s.config.AllowedOrigins) > 0 {
		origins = strings.Join(s.config.AllowedOrigins, ",")
	}

	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logging(s.logger))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,HEAD,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/ready", s.handleReady)

	api := s.app.Group("/api/v1")
	api.Get("/algorithms", s.handleListAlgorithms)
	api.Get("/experiments", s.handleListExperiments)
	api.Post("/experiments", s.handleRunExperiment)
	api.Get("/runs", s.handleListRuns)
	api.Get("/runs/:id", s.handleGetRun)
	api.Get("/runs/:id/report", s.handleGetReport)
}

// Run starts the HTTP server and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting server", zap.String("address", s.config.Address()))

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.config.Address()); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server...")
	if err := s.app.ShutdownWithTimeout(s.config.ShutdownTimeout); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	s.logger.Info("Server stopped gracefully")
	return nil
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.config.Address()
}

// errorHandler maps domain errors to status codes.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
