package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
	"github.com/xavierca1/salesops-sync/internal/infra/queue"
)

const (
	apiKeyHeader      = "x-api-key"
	sessionCookie     = "auth_session"
	sessionAuthorized = "authenticated"
)

type SyncService interface {
	Run(ctx context.Context, mode entity.SyncMode) (*entity.SyncReport, error)
	Running() bool
	LastRun(ctx context.Context) (*entity.SyncReport, error)
}

type SyncHandler struct {
	Runner      SyncService
	Publisher   queue.SyncRequestPublisher
	APIKey      string
	DefaultMode entity.SyncMode
	now         func() time.Time
}

type SyncResponse struct {
	Success   bool               `json:"success"`
	Message   string             `json:"message"`
	Duration  string             `json:"duration,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	RequestID string             `json:"request_id,omitempty"`
	Report    *entity.SyncReport `json:"report,omitempty"`
}

type SyncStatusResponse struct {
	Status    string             `json:"status"`
	Service   string             `json:"service"`
	Running   bool               `json:"running"`
	LastRun   *entity.SyncReport `json:"last_run,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewSyncHandler wires the trigger endpoint. publisher may be nil, in which
// case async=true is rejected.
func NewSyncHandler(runner SyncService, publisher queue.SyncRequestPublisher, apiKey string, defaultMode entity.SyncMode) *SyncHandler {
	return &SyncHandler{
		Runner:      runner,
		Publisher:   publisher,
		APIKey:      apiKey,
		DefaultMode: defaultMode,
		now:         time.Now,
	}
}

// Trigger handles POST /api/sync?mode=full|incremental[&async=true].
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().UTC()

	requestedBy, ok := h.authorize(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, SyncResponse{Message: "Unauthorized", Timestamp: now})
		return
	}

	mode, err := entity.ParseSyncMode(r.URL.Query().Get("mode"), h.DefaultMode)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, SyncResponse{Message: err.Error(), Timestamp: now})
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		h.enqueue(w, r, mode, requestedBy, now)
		return
	}

	logging.Ctx(ctx).Info().Str("mode", string(mode)).Str("requested_by", requestedBy).Msg("🔄 Sync requested")

	// A run is all-or-nothing; a dropped connection must not abort it.
	report, err := h.Runner.Run(context.WithoutCancel(ctx), mode)
	switch {
	case errors.Is(err, entity.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, SyncResponse{Message: err.Error(), Timestamp: h.now().UTC()})
		return
	case err != nil:
		resp := SyncResponse{Message: err.Error(), Timestamp: h.now().UTC(), Report: report}
		if report != nil {
			resp.Duration = report.DurationString()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	writeJSON(w, http.StatusOK, SyncResponse{
		Success:   true,
		Message:   "Sync " + string(mode) + " completed",
		Duration:  report.DurationString(),
		Timestamp: h.now().UTC(),
		Report:    report,
	})
}

func (h *SyncHandler) enqueue(w http.ResponseWriter, r *http.Request, mode entity.SyncMode, requestedBy string, now time.Time) {
	if h.Publisher == nil {
		writeJSON(w, http.StatusServiceUnavailable, SyncResponse{Message: "async sync is not configured", Timestamp: now})
		return
	}

	req := queue.SyncRequest{
		RequestID:   uuid.NewString(),
		Mode:        mode,
		RequestedBy: requestedBy,
		RequestedAt: now,
	}
	if err := h.Publisher.PublishSyncRequest(r.Context(), req); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("❌ Could not enqueue sync request")
		writeJSON(w, http.StatusInternalServerError, SyncResponse{Message: err.Error(), Timestamp: now})
		return
	}

	writeJSON(w, http.StatusAccepted, SyncResponse{
		Success:   true,
		Message:   "Sync " + string(mode) + " queued",
		Timestamp: now,
		RequestID: req.RequestID,
	})
}

// Status handles GET /api/sync. It is public and never triggers a run.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	last, err := h.Runner.LastRun(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("⚠️ Could not read last sync status")
	}

	writeJSON(w, http.StatusOK, SyncStatusResponse{
		Status:    "ok",
		Service:   "kommo-sync",
		Running:   h.Runner.Running(),
		LastRun:   last,
		Timestamp: h.now().UTC(),
	})
}

// authorize accepts the shared key used by cron jobs or a dashboard session cookie.
func (h *SyncHandler) authorize(r *http.Request) (string, bool) {
	if key := r.Header.Get(apiKeyHeader); key != "" && h.APIKey != "" &&
		subtle.ConstantTimeCompare([]byte(key), []byte(h.APIKey)) == 1 {
		return "api-key", true
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value == sessionAuthorized {
		return "session", true
	}
	return "", false
}
