// Package main provides the Planward API server implementation.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/planward/planward/pkg/metrics"
	"github.com/planward/planward/pkg/planner"
	"github.com/planward/planward/pkg/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

type API struct {
	logger   *slog.Logger
	manager  *planner.Manager
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, manager *planner.Manager) *API {
	return &API{
		logger:   logger,
		manager:  manager,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.manager, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))
	app.Use(recordMetrics)

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Planward API")
	})

	s := app.Group("/sessions")
	s.Post("/", handlers.CreateSession)
	s.Get("/:id", handlers.GetSession)
	s.Delete("/:id", handlers.DeleteSession)
	s.Post("/:id/generate", handlers.GenerateGraph)
	s.Post("/:id/check", handlers.CheckChanges)
	s.Post("/:id/undo", handlers.UndoEdit)
	s.Get("/:id/events", handlers.SessionEvents)
	s.Post("/:id/failure/dismiss", handlers.DismissFailure)

	// Node endpoints:
	s.Post("/:id/nodes", handlers.CreateNode)
	s.Patch("/:id/nodes/:nodeId", handlers.UpdateNode)
	s.Delete("/:id/nodes/:nodeId", handlers.DeleteNode)

	// Edge endpoints:
	s.Post("/:id/edges", handlers.CreateEdge)
	s.Delete("/:id/edges/:edgeId", handlers.DeleteEdge)

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

// recordMetrics observes every request for Prometheus. It runs before
// fiber's error handler, so handler errors are mapped to their status
// the same way fiber will map them.
func recordMetrics(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
	}

	method := c.Method()
	path := c.Route().Path

	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

	return err
}

// Start runs the session manager and serves HTTP until the listener is
// shut down. SIGINT and SIGTERM drain in-flight requests first.
func (a *API) Start(ctx context.Context, port int) error {
	err := a.manager.Start(ctx)
	if err != nil {
		return fmt.Errorf("start session manager: %w", err)
	}

	app := a.App()

	go a.handleSignals(ctx, app)

	return app.Listen(":" + strconv.Itoa(port))
}

// handleSignals sets up signal handling for graceful shutdown.
func (a *API) handleSignals(ctx context.Context, app *fiber.App) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signals
	a.logger.Info("Received signal, shutting down gracefully...", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	a.manager.Stop(shutdownCtx)

	err := app.ShutdownWithContext(shutdownCtx)
	if err != nil {
		a.logger.Error("Failed to shut down HTTP server", "error", err)
	}
}
