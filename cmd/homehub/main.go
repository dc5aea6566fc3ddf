package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/homehub/internal/api/http"
	"github.com/i474232898/homehub/internal/broadcast"
	"github.com/i474232898/homehub/internal/chime"
	"github.com/i474232898/homehub/internal/config"
	"github.com/i474232898/homehub/internal/logging"
	"github.com/i474232898/homehub/internal/relay"
	"github.com/i474232898/homehub/internal/scheduler"
	"github.com/i474232898/homehub/internal/store"
	"github.com/i474232898/homehub/internal/weather"
	"github.com/i474232898/homehub/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Log.Fatalf("failed to load config: %v", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log := logging.WithComponent("main")

	clock := clockwork.NewRealClock()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Latest snapshot, replayed to every new stream subscriber.
	snapshots := store.NewSnapshotStore()
	streams := broadcast.NewHub[weather.Snapshot](snapshots.Get)

	// Open-Meteo needs no API key; retries and breaker live in the provider.
	provider := providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoBaseURL)

	service := weather.NewService(provider, snapshots, streams, cfg.Location, cfg.ForecastDays, clock)

	sched := scheduler.New(scheduler.Config{
		Interval:     cfg.RefreshInterval,
		InitialDelay: cfg.RefreshInitialDelay,
		CycleTimeout: cfg.RefreshTimeout,
	}, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	relays := relay.NewHub()

	chimes := chime.NewService(
		chime.NewResolver(cfg.ChimeSoundDir),
		&chime.CommandPlayer{MP3Command: cfg.ChimeMP3Command, WAVCommand: cfg.ChimeWAVCommand},
	)

	app := fiber.New(fiber.Config{
		AppName:               "homehub",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
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

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "homehub",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	quit := make(chan struct{})
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Weather:             service,
		Stream:              streams,
		Relay:               relays,
		Chime:               chimes,
		Clock:               clock,
		StreamWriteTimeout:  cfg.StreamWriteTimeout,
		StreamKeepAlive:     cfg.StreamKeepAlive,
		RelayWriteTimeout:   cfg.RelayWriteTimeout,
		RelayAllowedOrigins: cfg.RelayAllowedOrigins,
		Quit:                quit,
	})

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Warn("fiber server stopped")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Open event streams never finish on their own.
	close(quit)
	streams.Close()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.WithError(err).Warn("error during shutdown")
	}

	chimes.Close()
	if err := chimes.Wait(shutdownCtx); err != nil {
		log.WithError(err).Warn("chime playback did not stop in time")
	}
}
