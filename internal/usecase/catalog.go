package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/integration/kommo"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

// catalog holds the lookups every lead and event mapping needs.
type catalog struct {
	users     map[int64]kommo.User
	pipelines map[int64]kommo.Pipeline
}

// syncCatalog refreshes users, pipelines and statuses in full. Both modes run
// it before touching leads or events.
func syncCatalog(ctx context.Context, api KommoAPI, store SyncStore, teams kommo.TeamResolver, now time.Time, report *entity.SyncReport) (*catalog, error) {
	log := logging.Ctx(ctx)

	log.Info().Msg("👥 Syncing users...")
	rawUsers, err := api.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	users := make([]*entity.User, 0, len(rawUsers))
	for _, u := range rawUsers {
		users = append(users, kommo.MapUser(u, teams, now))
	}
	users = kommo.UniqueByID(users, func(u *entity.User) int64 { return u.ID })
	if err := store.UpsertUsers(ctx, users); err != nil {
		return nil, fmt.Errorf("store users: %w", err)
	}
	report.Users = len(users)
	log.Info().Int("users", len(users)).Msg("✓ Users synced")

	log.Info().Msg("📊 Syncing pipelines...")
	rawPipelines, err := api.GetPipelines(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch pipelines: %w", err)
	}
	var (
		pipelines []*entity.Pipeline
		statuses  []*entity.PipelineStatus
	)
	for _, p := range rawPipelines {
		pipeline, st := kommo.MapPipeline(p, now)
		pipelines = append(pipelines, pipeline)
		statuses = append(statuses, st...)
	}
	pipelines = kommo.UniqueByID(pipelines, func(p *entity.Pipeline) int64 { return p.ID })
	statuses = kommo.UniqueByID(statuses, func(s *entity.PipelineStatus) int64 { return s.ID })

	if err := store.UpsertPipelines(ctx, pipelines); err != nil {
		return nil, fmt.Errorf("store pipelines: %w", err)
	}
	if err := store.UpsertStatuses(ctx, statuses); err != nil {
		return nil, fmt.Errorf("store pipeline statuses: %w", err)
	}
	report.Pipelines = len(pipelines)
	report.Statuses = len(statuses)
	log.Info().Int("pipelines", len(pipelines)).Int("statuses", len(statuses)).Msg("✓ Pipelines synced")

	return &catalog{
		users:     kommo.IndexUsers(rawUsers),
		pipelines: kommo.IndexPipelines(rawPipelines),
	}, nil
}

// mapLeads normalizes and de-duplicates a page of leads.
func (c *catalog) mapLeads(raw []kommo.Lead, now time.Time) []*entity.Lead {
	leads := make([]*entity.Lead, 0, len(raw))
	for _, l := range raw {
		leads = append(leads, kommo.MapLead(l, c.pipelines, c.users, now))
	}
	return kommo.UniqueByID(leads, func(l *entity.Lead) int64 { return l.ID })
}
