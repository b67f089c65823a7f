package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

type LeadRepository struct {
	DB  *sql.DB
	now func() time.Time
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db, now: time.Now}
}

const upsertLeadQuery = `
	INSERT INTO leads (
		id, name, pipeline_id, pipeline_name, status_id, status_name,
		responsible_user_id, responsible_user_name, price,
		created_at, updated_at, closed_at, is_deleted,
		development, model, source, medium, utm_source, utm_medium, utm_campaign,
		contact_name,
		appointment_scheduled, appointment_scheduled_at, visited, visited_at,
		last_synced_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
	)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		pipeline_id = EXCLUDED.pipeline_id,
		pipeline_name = EXCLUDED.pipeline_name,
		status_id = EXCLUDED.status_id,
		status_name = EXCLUDED.status_name,
		responsible_user_id = EXCLUDED.responsible_user_id,
		responsible_user_name = EXCLUDED.responsible_user_name,
		price = EXCLUDED.price,
		created_at = EXCLUDED.created_at,
		updated_at = EXCLUDED.updated_at,
		closed_at = EXCLUDED.closed_at,
		is_deleted = EXCLUDED.is_deleted,
		development = EXCLUDED.development,
		model = EXCLUDED.model,
		source = EXCLUDED.source,
		medium = EXCLUDED.medium,
		utm_source = EXCLUDED.utm_source,
		utm_medium = EXCLUDED.utm_medium,
		utm_campaign = EXCLUDED.utm_campaign,
		contact_name = EXCLUDED.contact_name,
		appointment_scheduled = EXCLUDED.appointment_scheduled,
		appointment_scheduled_at = EXCLUDED.appointment_scheduled_at,
		visited = EXCLUDED.visited,
		visited_at = EXCLUDED.visited_at,
		last_synced_at = EXCLUDED.last_synced_at
`

// UpsertLeads writes the batch in one transaction. The checkbox timestamps are
// resolved against the stored rows first, with a single read for the whole batch.
func (r *LeadRepository) UpsertLeads(ctx context.Context, leads []*entity.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	previous, err := r.previousFlags(ctx, leads)
	if err != nil {
		return err
	}
	entity.ResolveCheckboxTimestamps(leads, previous, r.now().UTC())

	return inTx(ctx, r.DB, "leads", upsertLeadQuery, len(leads), func(stmt *sql.Stmt, i int) error {
		l := leads[i]
		_, err := stmt.ExecContext(ctx,
			l.ID, l.Name, l.PipelineID, l.PipelineName, l.StatusID, l.StatusName,
			l.ResponsibleUserID, l.ResponsibleUserName, l.Price,
			l.CreatedAt, l.UpdatedAt, l.ClosedAt, l.IsDeleted,
			l.Development, l.Model, l.Source, l.Medium, l.UTMSource, l.UTMMedium, l.UTMCampaign,
			l.ContactName,
			l.AppointmentScheduled, l.AppointmentScheduledAt, l.Visited, l.VisitedAt,
			l.LastSyncedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert lead %d: %w", l.ID, err)
		}
		return nil
	})
}

func (r *LeadRepository) previousFlags(ctx context.Context, leads []*entity.Lead) (map[int64]entity.LeadFlags, error) {
	ids := make([]int64, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, appointment_scheduled, appointment_scheduled_at, visited, visited_at
		FROM leads
		WHERE id = ANY($1::bigint[])`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("read stored lead flags: %w", err)
	}
	defer rows.Close()

	previous := make(map[int64]entity.LeadFlags, len(ids))
	for rows.Next() {
		var id int64
		var flags entity.LeadFlags
		var scheduledAt, visitedAt sql.NullTime
		if err := rows.Scan(&id, &flags.AppointmentScheduled, &scheduledAt, &flags.Visited, &visitedAt); err != nil {
			return nil, fmt.Errorf("scan stored lead flags: %w", err)
		}
		if scheduledAt.Valid {
			flags.AppointmentScheduledAt = &scheduledAt.Time
		}
		if visitedAt.Valid {
			flags.VisitedAt = &visitedAt.Time
		}
		previous[id] = flags
	}
	return previous, rows.Err()
}

func (r *LeadRepository) ExistingLeadIDs(ctx context.Context) (entity.IDSet[int64], error) {
	return queryIDSet[int64](ctx, r.DB, `SELECT id FROM leads`)
}

// LastSyncedAt returns the newest lead updated_at, or the Unix epoch for an empty table.
func (r *LeadRepository) LastSyncedAt(ctx context.Context) (time.Time, error) {
	var last sql.NullTime
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM leads`).Scan(&last); err != nil {
		return time.Time{}, fmt.Errorf("read last synced timestamp: %w", err)
	}
	if !last.Valid {
		return time.Unix(0, 0).UTC(), nil
	}
	return last.Time.UTC(), nil
}

func queryIDSet[K comparable](ctx context.Context, db *sql.DB, query string) (entity.IDSet[K], error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load ids: %w", err)
	}
	defer rows.Close()

	set := entity.NewIDSet[K]()
	for rows.Next() {
		var id K
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		set.Add(id)
	}
	return set, rows.Err()
}
