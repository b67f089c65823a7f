package worker

import (
	"context"
	"errors"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

type SyncRunner interface {
	Run(ctx context.Context, mode entity.SyncMode) (*entity.SyncReport, error)
}

// SyncScheduler triggers a sync every tickInterval while the process runs.
type SyncScheduler struct {
	runner       SyncRunner
	mode         entity.SyncMode
	tickInterval time.Duration
	runOnStart   bool
}

func NewSyncScheduler(runner SyncRunner, mode entity.SyncMode, interval time.Duration) *SyncScheduler {
	return &SyncScheduler{
		runner:       runner,
		mode:         mode,
		tickInterval: interval,
		runOnStart:   true,
	}
}

// Start blocks until ctx is cancelled. Ticks that land while a run is still
// going are skipped.
func (s *SyncScheduler) Start(ctx context.Context) {
	logging.Info().
		Str("mode", string(s.mode)).
		Dur("interval", s.tickInterval).
		Msg("🕒 Sync scheduler started")

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	if s.runOnStart {
		s.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("⚠️ Sync scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	_, err := s.runner.Run(ctx, s.mode)
	switch {
	case err == nil:
	case errors.Is(err, entity.ErrSyncInProgress):
		logging.Warn().Msg("⏱️ Scheduled sync skipped, a run is already in progress")
	case ctx.Err() != nil:
	default:
		// The runner already logged and alerted; keep ticking.
		logging.Error().Err(err).Msg("❌ Scheduled sync failed")
	}
}
