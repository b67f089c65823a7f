package usecase

import (
	"context"
	"fmt"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/integration/kommo"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

type IncrementalSyncUseCase struct {
	API     KommoAPI
	Store   SyncStore
	Metrics MetricsRecalculator
	Teams   kommo.TeamResolver
	Events  *EventPaginator
	opts    SyncOptions
}

func NewIncrementalSyncUseCase(api KommoAPI, store SyncStore, metrics MetricsRecalculator, teams kommo.TeamResolver, opts SyncOptions) *IncrementalSyncUseCase {
	opts = opts.withDefaults()
	return &IncrementalSyncUseCase{
		API:     api,
		Store:   store,
		Metrics: metrics,
		Teams:   teams,
		Events:  &EventPaginator{API: api, Store: store, Retry: opts.PageRetry},
		opts:    opts,
	}
}

// Execute catches up on what changed since the newest stored lead. Metrics are
// only rebuilt when something was written, and their failures never fail the run.
func (uc *IncrementalSyncUseCase) Execute(ctx context.Context, report *entity.SyncReport) error {
	log := logging.Ctx(ctx)
	now := uc.opts.Now().UTC()
	log.Info().Msg("🔄 Starting INCREMENTAL sync")

	since, err := uc.Store.LastSyncedAt(ctx)
	if err != nil {
		return err
	}
	log.Info().Time("since", since).Msg("📅 Fetching changes")

	cat, err := syncCatalog(ctx, uc.API, uc.Store, uc.Teams, now, report)
	if err != nil {
		return err
	}

	leadIDs, err := uc.Store.ExistingLeadIDs(ctx)
	if err != nil {
		return fmt.Errorf("load existing lead ids: %w", err)
	}

	// Updated leads are read with a single page request.
	leadFilter := kommo.Filter{UpdatedFrom: since.Unix()}
	raw, err := FetchWithRetry(ctx, uc.opts.PageRetry, "leads", 1, func(ctx context.Context, page int) ([]kommo.Lead, error) {
		return uc.API.GetLeads(ctx, leadFilter, page)
	})
	if err != nil {
		return err
	}
	if len(raw) >= kommo.PageSize {
		log.Warn().Int("leads", len(raw)).Msg("⚠️ Updated leads filled a whole page; older changes wait for a full backfill")
	}

	if len(raw) > 0 {
		leads := cat.mapLeads(raw, now)
		if err := uc.Store.UpsertLeads(ctx, leads); err != nil {
			return fmt.Errorf("store updated leads: %w", err)
		}
		for _, l := range leads {
			leadIDs.Add(l.ID)
		}
		report.LeadsWritten = len(leads)
		log.Info().Int("leads", len(leads)).Msg("✓ Leads updated")
	}

	log.Info().Msg("📅 Fetching new events...")
	if err := uc.Events.Run(ctx, kommo.Filter{CreatedFrom: since.Unix()}, cat, leadIDs, now, report); err != nil {
		return err
	}

	if !report.Changed() {
		log.Info().Msg("💤 Nothing changed, metrics left as they are")
		return nil
	}
	return recalculateMetrics(ctx, uc.Metrics, func(error) bool { return true }, report)
}
