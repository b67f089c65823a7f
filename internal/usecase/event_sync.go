package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/integration/kommo"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

// progressEvery is how often (in pages) a fully skipped page is still logged.
const progressEvery = 10

// EventPaginator is the event phase shared by both sync modes: it walks the
// event listing, drops orphans and already stored ids and upserts the rest.
type EventPaginator struct {
	API   KommoAPI
	Store SyncStore
	Retry RetryPolicy
}

func (p *EventPaginator) Run(ctx context.Context, filter kommo.Filter, cat *catalog, leadIDs entity.IDSet[int64], now time.Time, report *entity.SyncReport) error {
	log := logging.Ctx(ctx)

	existing, err := p.Store.ExistingEventIDs(ctx)
	if err != nil {
		return fmt.Errorf("load existing event ids: %w", err)
	}
	log.Info().Int("existing_events", existing.Len()).Msg("🔍 Loaded stored event ids")

	fetch := func(ctx context.Context, page int) ([]kommo.Event, error) {
		return p.API.GetEvents(ctx, filter, page)
	}

	pages, err := Paginate(ctx, p.Retry, "events", fetch, func(page int, raw []kommo.Event) error {
		fresh := make([]*entity.Event, 0, len(raw))
		for _, e := range raw {
			if !leadIDs.Has(e.EntityID) {
				report.SkippedOrphans++
				continue
			}
			if existing.Has(e.ID.String()) {
				report.SkippedExisting++
				continue
			}
			fresh = append(fresh, kommo.MapEvent(e, cat.users, now))
		}

		unique := kommo.UniqueByID(fresh, func(e *entity.Event) string { return e.ID })
		report.SkippedExisting += len(fresh) - len(unique)

		if len(unique) == 0 {
			if page%progressEvery == 0 {
				log.Info().Int("page", page).Msg("   └─ Advancing, every event on the page is stored or orphaned")
			}
			return nil
		}

		if err := p.Store.UpsertEvents(ctx, unique); err != nil {
			return fmt.Errorf("store events page %d (written so far %d): %w", page, report.EventsWritten, err)
		}
		for _, e := range unique {
			existing.Add(e.ID)
		}
		report.EventsWritten += len(unique)

		log.Info().
			Int("page", page).
			Int("new", len(unique)).
			Int("total", report.EventsWritten).
			Int("orphans", report.SkippedOrphans).
			Int("existing", report.SkippedExisting).
			Msg("   └─ Events page stored")
		return nil
	})
	if err != nil {
		log.Error().
			Err(err).
			Int("pages", pages).
			Int("events_written", report.EventsWritten).
			Msg("❌ Event pagination aborted")
		return err
	}

	log.Info().
		Int("pages", pages).
		Int("new", report.EventsWritten).
		Int("orphans", report.SkippedOrphans).
		Int("existing", report.SkippedExisting).
		Msg("✓ Events synced")
	return nil
}
