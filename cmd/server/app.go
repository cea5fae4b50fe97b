package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 10 * time.Second

// NewApp builds the Fiber app with the middleware stack and every route registered.
func (c *Config) NewApp(svc *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "realm-stack",
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(c.Server.AllowedOrigins, ","),
	}))

	c.RegisterRoutes(app, svc)
	return app
}

// serve listens on addr until ctx is done or the listener fails.
func serve(ctx context.Context, app *fiber.App, addr string, log *slog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(addr)
	}()
	log.Info("server started", "address", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

// healthHandler reports mirror count and background task totals.
func healthHandler(svc *Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.Map{"status": "ok"}
		if svc.Indexer != nil && svc.Indexer.Client != nil {
			status["mirrors"] = svc.Indexer.Client.Selector().Len()
		}
		if svc.Pool != nil {
			processed, failed := svc.Pool.Stats()
			status["tasks"] = fiber.Map{
				"processed": processed,
				"failed":    failed,
			}
		}
		return c.JSON(status)
	}
}
