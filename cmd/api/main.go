package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/salesops-sync/internal/app"
	"github.com/xavierca1/salesops-sync/internal/config"
	"github.com/xavierca1/salesops-sync/internal/infra/http/handlers"
	"github.com/xavierca1/salesops-sync/internal/infra/http/middleware"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
	"github.com/xavierca1/salesops-sync/internal/infra/queue"
	"github.com/xavierca1/salesops-sync/internal/infra/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("❌ Could not load configuration")
		return 1
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("❌ Startup failed")
		return 1
	}
	defer a.Close()

	// 1. Queue (optional): async triggers from the API, consumed by this process
	var (
		publisher queue.SyncRequestPublisher
		rabbitUp  func() bool
	)
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			logging.Error().Err(err).Msg("❌ RabbitMQ unavailable")
			return 1
		}
		defer rabbitMQ.Close()

		publisher = queue.NewProducer(rabbitMQ.Ch)
		rabbitUp = rabbitMQ.Healthy

		w := queue.NewWorker(rabbitMQ.Ch, a.Runner, cfg.SyncMode)
		go func() {
			if err := w.Start(ctx, queue.QueueName); err != nil {
				logging.Error().Err(err).Msg("❌ Sync worker stopped")
			}
		}()
	}

	// 2. Scheduler (optional)
	if cfg.SyncInterval > 0 {
		go worker.NewSyncScheduler(a.Runner, cfg.SyncMode, cfg.SyncInterval).Start(ctx)
	}

	// 3. Handlers
	var redisPinger handlers.Pinger
	if ping := a.RedisPing(); ping != nil {
		redisPinger = handlers.PingFunc(ping)
	}
	healthHandler := handlers.NewHealthHandler(a.DB, rabbitUp, redisPinger, cfg.KommoAPIURL())
	syncHandler := handlers.NewSyncHandler(a.Runner, publisher, cfg.SyncAPIKey, cfg.SyncMode)
	advisorsHandler := handlers.NewAdvisorsHandler(a.Gateway, a.Teams)

	// 4. Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Api-Key"},
		AllowCredentials: false,
	}))

	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/advisors", advisorsHandler.List)
		r.Get("/sync", syncHandler.Status)
		r.With(httprate.LimitByIP(6, time.Minute)).Post("/sync", syncHandler.Trigger)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// A synchronous full sync can take several minutes.
		WriteTimeout: 15 * time.Minute,
	}

	go func() {
		logging.Info().Str("port", cfg.ServerPort).Msg("🔥 Kommo sync server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("❌ HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("❌ Graceful shutdown failed")
		return 1
	}
	return 0
}
