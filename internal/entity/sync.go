package entity

import (
	"fmt"
	"strings"
	"time"
)

type SyncMode string

const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
)

// ParseSyncMode accepts "full" or "incremental" (case-insensitive).
// An empty string resolves to fallback.
func ParseSyncMode(s string, fallback SyncMode) (SyncMode, error) {
	switch SyncMode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return fallback, nil
	case SyncModeFull:
		return SyncModeFull, nil
	case SyncModeIncremental:
		return SyncModeIncremental, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSyncMode, s)
	}
}

const (
	SyncStatusRunning   = "RUNNING"
	SyncStatusSucceeded = "SUCCEEDED"
	SyncStatusFailed    = "FAILED"
)

// SyncReport summarizes one sync run. It is returned even when the run
// aborts, so partial counters are still visible to the caller.
type SyncReport struct {
	RunID      string    `json:"run_id"`
	Mode       SyncMode  `json:"mode"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Duration   float64   `json:"duration_seconds"`

	Users           int `json:"users"`
	Pipelines       int `json:"pipelines"`
	Statuses        int `json:"statuses"`
	LeadsWritten    int `json:"leads_written"`
	EventsWritten   int `json:"events_written"`
	SkippedOrphans  int `json:"skipped_orphans"`
	SkippedExisting int `json:"skipped_existing"`

	MetricsRecalculated bool   `json:"metrics_recalculated"`
	Error               string `json:"error,omitempty"`
}

func NewSyncReport(mode SyncMode, startedAt time.Time) *SyncReport {
	return &SyncReport{
		Mode:      mode,
		Status:    SyncStatusRunning,
		StartedAt: startedAt,
	}
}

// Finish closes the report with the run outcome.
func (r *SyncReport) Finish(now time.Time, err error) {
	r.FinishedAt = now
	r.Duration = now.Sub(r.StartedAt).Seconds()
	if err != nil {
		r.Status = SyncStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = SyncStatusSucceeded
}

// Changed reports whether the run wrote any lead or event.
func (r *SyncReport) Changed() bool {
	return r.LeadsWritten > 0 || r.EventsWritten > 0
}

// DurationString formats the duration the way the sync endpoint reports it ("12.34s").
func (r *SyncReport) DurationString() string {
	return fmt.Sprintf("%.2fs", r.Duration)
}
