package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/xavierca1/salesops-sync/internal/app"
	"github.com/xavierca1/salesops-sync/internal/config"
	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

// sync runs one Kommo sync and exits non-zero when it fails. Meant for cron.
func main() {
	modeFlag := flag.String("mode", "", "sync mode: full or incremental (default SYNC_MODE)")
	flag.Parse()

	os.Exit(run(*modeFlag))
}

func run(modeFlag string) int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("❌ Could not load configuration")
		return 1
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	mode, err := entity.ParseSyncMode(modeFlag, cfg.SyncMode)
	if err != nil {
		logging.Error().Err(err).Msg("❌ Invalid mode")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("❌ Startup failed")
		return 1
	}
	defer a.Close()

	report, err := a.Runner.Run(ctx, mode)
	if err != nil {
		return 1
	}

	logging.Info().
		Int("leads", report.LeadsWritten).
		Int("events", report.EventsWritten).
		Int("skipped_orphans", report.SkippedOrphans).
		Int("skipped_existing", report.SkippedExisting).
		Str("duration", report.DurationString()).
		Msg("✅ Done")
	return 0
}
