package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/http/middleware"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

// Orchestrator is one sync mode.
type Orchestrator interface {
	Execute(ctx context.Context, report *entity.SyncReport) error
}

// SyncRunner is the single entry point for the HTTP trigger, the queue worker,
// the scheduler and the CLI. Only one run executes at a time per process.
type SyncRunner struct {
	api          KommoAPI
	orchestrator map[entity.SyncMode]Orchestrator
	status       RunStatusStore
	notifiers    []FailureNotifier

	mu      sync.Mutex
	running atomic.Bool
	now     func() time.Time
	newID   func() string
}

type RunnerOption func(*SyncRunner)

func WithStatusStore(s RunStatusStore) RunnerOption {
	return func(r *SyncRunner) { r.status = s }
}

// WithFailureNotifier adds an alert channel. It can be given more than once.
func WithFailureNotifier(n FailureNotifier) RunnerOption {
	return func(r *SyncRunner) { r.notifiers = append(r.notifiers, n) }
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *SyncRunner) { r.now = now }
}

func NewSyncRunner(api KommoAPI, full, incremental Orchestrator, opts ...RunnerOption) *SyncRunner {
	r := &SyncRunner{
		api: api,
		orchestrator: map[entity.SyncMode]Orchestrator{
			entity.SyncModeFull:        full,
			entity.SyncModeIncremental: incremental,
		},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Running reports whether a run is in progress in this process.
func (r *SyncRunner) Running() bool {
	return r.running.Load()
}

// LastRun returns the latest stored report, or nil when no status store is configured.
func (r *SyncRunner) LastRun(ctx context.Context) (*entity.SyncReport, error) {
	if r.status == nil {
		return nil, nil
	}
	return r.status.Last(ctx)
}

// Run executes one sync. The report is returned even on failure so callers can
// show partial counters; a concurrent call fails fast with ErrSyncInProgress.
func (r *SyncRunner) Run(ctx context.Context, mode entity.SyncMode) (*entity.SyncReport, error) {
	orchestrator, ok := r.orchestrator[mode]
	if !ok || orchestrator == nil {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidSyncMode, mode)
	}

	if !r.mu.TryLock() {
		return nil, entity.ErrSyncInProgress
	}
	defer r.mu.Unlock()
	r.running.Store(true)
	defer r.running.Store(false)

	report := entity.NewSyncReport(mode, r.now().UTC())
	report.RunID = r.newID()

	ctx = logging.WithFields(ctx, "run_id", report.RunID, "mode", string(mode))
	log := logging.Ctx(ctx)
	log.Info().Msg("🚀 Sync started")

	// Status and alerts are written even when ctx was cancelled mid-run.
	bg := context.WithoutCancel(ctx)
	r.saveStatus(bg, report)

	err := r.api.Ping(ctx)
	if err == nil {
		err = orchestrator.Execute(ctx, report)
	}

	report.Finish(r.now().UTC(), err)
	r.record(report)
	r.saveStatus(bg, report)

	if err != nil {
		log.Error().Err(err).Str("duration", report.DurationString()).Msg("❌ Sync failed")
		r.notify(bg, report)
		return report, err
	}

	log.Info().
		Str("duration", report.DurationString()).
		Int("leads", report.LeadsWritten).
		Int("events", report.EventsWritten).
		Int("orphans", report.SkippedOrphans).
		Int("existing", report.SkippedExisting).
		Msg("✅ Sync completed")
	return report, nil
}

func (r *SyncRunner) record(report *entity.SyncReport) {
	mode := string(report.Mode)
	middleware.RecordSyncRun(mode, report.Status, report.Duration, report.FinishedAt)
	middleware.RecordSyncRecords("lead", "written", report.LeadsWritten)
	middleware.RecordSyncRecords("event", "written", report.EventsWritten)
	middleware.RecordSyncRecords("event", "orphan", report.SkippedOrphans)
	middleware.RecordSyncRecords("event", "existing", report.SkippedExisting)
}

func (r *SyncRunner) saveStatus(ctx context.Context, report *entity.SyncReport) {
	if r.status == nil {
		return
	}
	snapshot := *report
	if err := r.status.Save(ctx, &snapshot); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("⚠️ Could not store sync status")
	}
}

func (r *SyncRunner) notify(ctx context.Context, report *entity.SyncReport) {
	for _, n := range r.notifiers {
		if err := n.NotifySyncFailure(ctx, report); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("⚠️ Could not send failure alert")
		}
	}
}
