package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gopkg.in/yaml.v3"

	httpapi "github.com/wxforward/wulike/internal/api/http"
	"github.com/wxforward/wulike/internal/config"
	"github.com/wxforward/wulike/internal/ingest"
	"github.com/wxforward/wulike/internal/logging"
	"github.com/wxforward/wulike/internal/manifest"
	"github.com/wxforward/wulike/internal/scheduler"
	"github.com/wxforward/wulike/internal/spool"
	"github.com/wxforward/wulike/internal/uploader"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "manifest" {
		printManifest()
		return
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	applog, err := logging.New(cfg, version)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	// Spool for records that exhaust their retries.
	spoolStore, err := spool.Open(cfg.Spool.Path)
	if err != nil {
		log.Fatalf("failed to open spool: %v", err)
	}
	defer spoolStore.Close()

	// Shared HTTP client for outbound posts.
	httpClient := &http.Client{
		Timeout: cfg.Upload.Timeout,
	}

	stats := &uploader.Stats{}
	up := uploader.New(cfg.Upload, httpClient)
	worker := uploader.NewWorker(up, cfg.Upload, spoolStore, stats, applog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker.Start(ctx)
	defer worker.Stop()

	// Catch-up job resending spooled records.
	sched := scheduler.New(spoolStore, up, stats, applog,
		cfg.Spool.DrainInterval, cfg.Spool.DrainBatch)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start catch-up scheduler: %v", err)
	}
	defer sched.Stop()

	// MQTT ingest of host archive records, when a broker is configured.
	if cfg.MQTT.Broker != "" {
		sub := ingest.NewSubscriber(cfg.MQTT, worker.Enqueue, applog)
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := sub.Connect(connectCtx)
		cancel()
		if err != nil {
			// Keep running: paho retries in the background and the HTTP
			// ingest endpoint still works.
			applog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
		defer sub.Disconnect()
	}

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "wulike",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "wulike",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Enqueue:    worker.Enqueue,
		Enabled:    up.Enabled(),
		Stats:      stats,
		SpoolCount: spoolStore.Count,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			applog.Error("fiber server stopped", "error", err)
		}
	}()

	applog.Info("wulike started",
		"enabled", up.Enabled(),
		"station", cfg.Upload.Station,
		"http_port", cfg.Port,
		"mqtt_broker", cfg.MQTT.Broker,
	)

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		applog.Error("error during shutdown", "error", err)
	}
}

// printManifest loads the installer manifest next to the binary (or from
// WULIKE_MANIFEST) and echoes it for the host's extension installer.
func printManifest() {
	path := os.Getenv("WULIKE_MANIFEST")
	if path == "" {
		path = "extension.yaml"
	}
	m, err := manifest.Load(path)
	if err != nil {
		log.Fatalf("failed to load manifest: %v", err)
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		log.Fatalf("failed to render manifest: %v", err)
	}
	fmt.Print(string(out))
}
