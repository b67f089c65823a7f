package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

type PipelineRepository struct {
	DB *sql.DB
}

func NewPipelineRepository(db *sql.DB) *PipelineRepository {
	return &PipelineRepository{DB: db}
}

const upsertPipelineQuery = `
	INSERT INTO pipelines (id, name, is_main, sort_order, last_synced_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		is_main = EXCLUDED.is_main,
		sort_order = EXCLUDED.sort_order,
		last_synced_at = EXCLUDED.last_synced_at
`

const upsertStatusQuery = `
	INSERT INTO pipeline_statuses (id, pipeline_id, name, color, sort_order, last_synced_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		pipeline_id = EXCLUDED.pipeline_id,
		name = EXCLUDED.name,
		color = EXCLUDED.color,
		sort_order = EXCLUDED.sort_order,
		last_synced_at = EXCLUDED.last_synced_at
`

func (r *PipelineRepository) UpsertPipelines(ctx context.Context, pipelines []*entity.Pipeline) error {
	if len(pipelines) == 0 {
		return nil
	}

	return inTx(ctx, r.DB, "pipelines", upsertPipelineQuery, len(pipelines), func(stmt *sql.Stmt, i int) error {
		p := pipelines[i]
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.IsMain, p.SortOrder, p.LastSyncedAt); err != nil {
			return fmt.Errorf("upsert pipeline %d: %w", p.ID, err)
		}
		return nil
	})
}

// UpsertStatuses must run after UpsertPipelines: pipeline_statuses references pipelines(id).
func (r *PipelineRepository) UpsertStatuses(ctx context.Context, statuses []*entity.PipelineStatus) error {
	if len(statuses) == 0 {
		return nil
	}

	return inTx(ctx, r.DB, "pipeline_statuses", upsertStatusQuery, len(statuses), func(stmt *sql.Stmt, i int) error {
		s := statuses[i]
		if _, err := stmt.ExecContext(ctx, s.ID, s.PipelineID, s.Name, s.Color, s.SortOrder, s.LastSyncedAt); err != nil {
			return fmt.Errorf("upsert status %d: %w", s.ID, err)
		}
		return nil
	})
}
