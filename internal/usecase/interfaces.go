package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/integration/kommo"
)

// KommoAPI is the slice of the Kommo client the sync engine depends on.
type KommoAPI interface {
	Ping(ctx context.Context) error
	GetUsers(ctx context.Context) ([]kommo.User, error)
	GetPipelines(ctx context.Context) ([]kommo.Pipeline, error)
	GetLeads(ctx context.Context, filter kommo.Filter, page int) ([]kommo.Lead, error)
	GetEvents(ctx context.Context, filter kommo.Filter, page int) ([]kommo.Event, error)
}

// SyncStore is the persistence gateway. Upserts are idempotent on id and an
// empty batch is a no-op.
type SyncStore interface {
	UpsertUsers(ctx context.Context, users []*entity.User) error
	UpsertPipelines(ctx context.Context, pipelines []*entity.Pipeline) error
	UpsertStatuses(ctx context.Context, statuses []*entity.PipelineStatus) error
	UpsertLeads(ctx context.Context, leads []*entity.Lead) error
	UpsertEvents(ctx context.Context, events []*entity.Event) error

	ExistingLeadIDs(ctx context.Context) (entity.IDSet[int64], error)
	ExistingEventIDs(ctx context.Context) (entity.IDSet[string], error)
	LastSyncedAt(ctx context.Context) (time.Time, error)
}

type MetricsRecalculator interface {
	RecalculateResponseTimes(ctx context.Context) error
	RecalculateConversions(ctx context.Context) error
}

// RunStatusStore keeps the report of the latest run for the status endpoint.
type RunStatusStore interface {
	Save(ctx context.Context, report *entity.SyncReport) error
	Last(ctx context.Context) (*entity.SyncReport, error)
}

// FailureNotifier is told about runs that ended in error.
type FailureNotifier interface {
	NotifySyncFailure(ctx context.Context, report *entity.SyncReport) error
}
