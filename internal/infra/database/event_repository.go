package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

type EventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{DB: db}
}

// Events are immutable in Kommo, so a conflict only refreshes last_synced_at.
const upsertEventQuery = `
	INSERT INTO events (
		id, lead_id, event_type, created_at, created_by_id, created_by_name,
		value_before, value_after, last_synced_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		last_synced_at = EXCLUDED.last_synced_at
`

func (r *EventRepository) UpsertEvents(ctx context.Context, events []*entity.Event) error {
	if len(events) == 0 {
		return nil
	}

	return inTx(ctx, r.DB, "events", upsertEventQuery, len(events), func(stmt *sql.Stmt, i int) error {
		e := events[i]
		_, err := stmt.ExecContext(ctx,
			e.ID, e.LeadID, e.EventType, e.CreatedAt, e.CreatedByID, e.CreatedByName,
			e.ValueBefore, e.ValueAfter, e.LastSyncedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert event %s: %w", e.ID, err)
		}
		return nil
	})
}

func (r *EventRepository) ExistingEventIDs(ctx context.Context) (entity.IDSet[string], error) {
	return queryIDSet[string](ctx, r.DB, `SELECT id FROM events`)
}

// inTx prepares query once and runs exec for each of the n rows inside a single transaction.
func inTx(ctx context.Context, db *sql.DB, table, query string, n int, exec func(stmt *sql.Stmt, i int) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s upsert: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s upsert: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s upsert: %w", table, err)
	}
	return nil
}
