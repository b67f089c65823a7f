package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xavierca1/salesops-sync/internal/config"
	"github.com/xavierca1/salesops-sync/internal/infra/cache"
	"github.com/xavierca1/salesops-sync/internal/infra/database"
	"github.com/xavierca1/salesops-sync/internal/infra/integration/kommo"
	"github.com/xavierca1/salesops-sync/internal/infra/integration/whatsapp"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
	"github.com/xavierca1/salesops-sync/internal/infra/mail"
	"github.com/xavierca1/salesops-sync/internal/usecase"
)

const runStatusTTL = 7 * 24 * time.Hour

// App holds the long-lived dependencies shared by the API server and the CLI.
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Gateway *database.Gateway
	Kommo   *kommo.Client
	Teams   *config.TeamDirectory
	Redis   *redis.Client
	Status  usecase.RunStatusStore
	Runner  *usecase.SyncRunner

	redisStatus *cache.RedisStatusStore
}

// New connects to Postgres (and Redis when configured) and assembles the sync runner.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	teams := config.DefaultTeamDirectory()
	if cfg.TeamsFile != "" {
		loaded, err := config.LoadTeamDirectory(cfg.TeamsFile)
		if err != nil {
			return nil, err
		}
		teams = loaded
	}
	logging.Info().Int("advisors", teams.Len()).Msg("👥 Team directory loaded")

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		DB:      db,
		Gateway: database.NewGateway(db, cfg.MetricsTimeout),
		Teams:   teams,
		Kommo: kommo.NewClient(
			cfg.KommoAPIURL(),
			cfg.KommoAccessToken,
			kommo.WithRateLimit(cfg.KommoRateLimit),
			kommo.WithHTTPClient(&http.Client{Timeout: cfg.KommoTimeout}),
		),
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.Redis = client
		a.redisStatus = cache.NewRedisStatusStore(client, runStatusTTL)
		a.Status = a.redisStatus
		logging.Info().Msg("✅ Redis connected, run status is shared")
	} else {
		a.Status = cache.NewMemoryStatusStore()
		logging.Warn().Msg("⚠️ REDIS_URL not set, run status kept in memory")
	}

	opts := usecase.SyncOptions{
		EventsLookback:   cfg.EventsLookback(),
		FullIncludeLeads: cfg.FullIncludeLeads,
	}
	full := usecase.NewFullSyncUseCase(a.Kommo, a.Gateway, a.Gateway, teams, opts)
	incremental := usecase.NewIncrementalSyncUseCase(a.Kommo, a.Gateway, a.Gateway, teams, opts)

	runnerOpts := []usecase.RunnerOption{usecase.WithStatusStore(a.Status)}
	if cfg.Mail.Enabled() {
		sender := mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From, cfg.Mail.AlertTo)
		runnerOpts = append(runnerOpts, usecase.WithFailureNotifier(sender))
		logging.Info().Str("to", cfg.Mail.AlertTo).Msg("📧 Failure alerts enabled")
	}
	if wa := cfg.WhatsApp; wa.Enabled() {
		client := whatsapp.NewClient(wa.AccessToken, wa.PhoneID, wa.AlertTo, whatsapp.WithTemplate(wa.Template, wa.Language))
		runnerOpts = append(runnerOpts, usecase.WithFailureNotifier(client))
		logging.Info().Msg("📱 WhatsApp failure alerts enabled")
	}

	a.Runner = usecase.NewSyncRunner(a.Kommo, full, incremental, runnerOpts...)
	return a, nil
}

// RedisPing is nil when Redis is not configured.
func (a *App) RedisPing() func(ctx context.Context) error {
	if a.redisStatus == nil {
		return nil
	}
	return a.redisStatus.Ping
}

func (a *App) Close() error {
	var firstErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			firstErr = fmt.Errorf("closing redis: %w", err)
		}
	}
	if err := a.DB.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	return firstErr
}
