package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/integration/kommo"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

// SyncOptions tunes both orchestrators.
type SyncOptions struct {
	// EventsLookback bounds the events a full sync reads.
	EventsLookback time.Duration

	// FullIncludeLeads makes the full sync backfill every lead before the events.
	FullIncludeLeads bool

	PageRetry RetryPolicy
	Now       func() time.Time
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.EventsLookback <= 0 {
		o.EventsLookback = 90 * 24 * time.Hour
	}
	if o.PageRetry.Attempts == 0 {
		o.PageRetry = DefaultPageRetry
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type FullSyncUseCase struct {
	API     KommoAPI
	Store   SyncStore
	Metrics MetricsRecalculator
	Teams   kommo.TeamResolver
	Events  *EventPaginator
	opts    SyncOptions
}

func NewFullSyncUseCase(api KommoAPI, store SyncStore, metrics MetricsRecalculator, teams kommo.TeamResolver, opts SyncOptions) *FullSyncUseCase {
	opts = opts.withDefaults()
	return &FullSyncUseCase{
		API:     api,
		Store:   store,
		Metrics: metrics,
		Teams:   teams,
		Events:  &EventPaginator{API: api, Store: store, Retry: opts.PageRetry},
		opts:    opts,
	}
}

// Execute refreshes users and pipelines, then reads every lead event inside the
// lookback window. Leads are not fetched unless FullIncludeLeads is set, so
// events are only kept for leads already in the store.
func (uc *FullSyncUseCase) Execute(ctx context.Context, report *entity.SyncReport) error {
	log := logging.Ctx(ctx)
	now := uc.opts.Now().UTC()
	log.Info().Msg("📦 Starting FULL sync")

	cat, err := syncCatalog(ctx, uc.API, uc.Store, uc.Teams, now, report)
	if err != nil {
		return err
	}

	leadIDs, err := uc.Store.ExistingLeadIDs(ctx)
	if err != nil {
		return fmt.Errorf("load existing lead ids: %w", err)
	}

	if uc.opts.FullIncludeLeads {
		if err := uc.backfillLeads(ctx, cat, leadIDs, now, report); err != nil {
			return err
		}
	} else {
		log.Info().Msg("📋 Leads: skipped in full mode")
	}
	log.Info().Int("lead_ids", leadIDs.Len()).Msg("✓ Lead ids loaded")

	from := now.Add(-uc.opts.EventsLookback)
	log.Info().Time("from", from).Msg("📅 Syncing events...")
	if err := uc.Events.Run(ctx, kommo.Filter{CreatedFrom: from.Unix()}, cat, leadIDs, now, report); err != nil {
		return err
	}

	return recalculateMetrics(ctx, uc.Metrics, func(err error) bool {
		return errors.Is(err, entity.ErrMetricsTimeout)
	}, report)
}

func (uc *FullSyncUseCase) backfillLeads(ctx context.Context, cat *catalog, leadIDs entity.IDSet[int64], now time.Time, report *entity.SyncReport) error {
	log := logging.Ctx(ctx)
	log.Info().Msg("📋 Backfilling leads...")

	fetch := func(ctx context.Context, page int) ([]kommo.Lead, error) {
		return uc.API.GetLeads(ctx, kommo.Filter{}, page)
	}
	_, err := Paginate(ctx, uc.opts.PageRetry, "leads", fetch, func(page int, raw []kommo.Lead) error {
		leads := cat.mapLeads(raw, now)
		if err := uc.Store.UpsertLeads(ctx, leads); err != nil {
			return fmt.Errorf("store leads page %d (written so far %d): %w", page, report.LeadsWritten, err)
		}
		for _, l := range leads {
			leadIDs.Add(l.ID)
		}
		report.LeadsWritten += len(leads)
		log.Info().Int("page", page).Int("total", report.LeadsWritten).Msg("   └─ Leads page stored")
		return nil
	})
	return err
}
