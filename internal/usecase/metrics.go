package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

// recalculateMetrics rebuilds the response-time and conversion aggregates.
// Each step runs even when the other one failed with an error accepted by
// tolerate; such errors are logged and swallowed.
func recalculateMetrics(ctx context.Context, m MetricsRecalculator, tolerate func(error) bool, report *entity.SyncReport) error {
	if m == nil {
		return nil
	}
	log := logging.Ctx(ctx)
	start := time.Now()

	log.Info().Msg("🔢 Recalculating metrics...")
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"calculate_response_times", m.RecalculateResponseTimes},
		{"calculate_conversions", m.RecalculateConversions},
	}

	complete := true
	for _, step := range steps {
		err := step.run(ctx)
		if err == nil {
			continue
		}
		if !tolerate(err) {
			return err
		}
		complete = false
		log.Warn().Err(err).Str("step", step.name).Msg("⚠️ Metrics recalculation failed")
		log.Info().Msgf("💡 %s needs its indexes and a raised statement_timeout", step.name)
	}

	if !complete {
		return nil
	}
	report.MetricsRecalculated = true
	log.Info().Dur("took", time.Since(start)).Msg("✅ Metrics recalculated")
	return nil
}
