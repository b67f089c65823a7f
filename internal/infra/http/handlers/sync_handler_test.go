package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/queue"
)

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Run(ctx context.Context, mode entity.SyncMode) (*entity.SyncReport, error) {
	args := m.Called(ctx, mode)
	report, _ := args.Get(0).(*entity.SyncReport)
	return report, args.Error(1)
}

func (m *MockSyncService) Running() bool {
	return m.Called().Bool(0)
}

func (m *MockSyncService) LastRun(ctx context.Context) (*entity.SyncReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*entity.SyncReport)
	return report, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSyncRequest(ctx context.Context, req queue.SyncRequest) error {
	return m.Called(ctx, req).Error(0)
}

var handlerNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

func newSyncHandler(runner SyncService, publisher queue.SyncRequestPublisher) *SyncHandler {
	h := NewSyncHandler(runner, publisher, "secret", entity.SyncModeIncremental)
	h.now = func() time.Time { return handlerNow }
	return h
}

func finishedReport(mode entity.SyncMode, err error) *entity.SyncReport {
	r := entity.NewSyncReport(mode, handlerNow)
	r.Finish(handlerNow.Add(12340*time.Millisecond), err)
	return r
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) SyncResponse {
	t.Helper()
	var resp SyncResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSyncTrigger_Unauthorized(t *testing.T) {
	runner := new(MockSyncService)
	h := newSyncHandler(runner, nil)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/api/sync", nil),
		func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
			r.Header.Set("x-api-key", "wrong")
			return r
		}(),
		func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
			r.AddCookie(&http.Cookie{Name: "auth_session", Value: "nope"})
			return r
		}(),
	} {
		rec := httptest.NewRecorder()
		h.Trigger(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestSyncTrigger_APIKeyRunsRequestedMode(t *testing.T) {
	runner := new(MockSyncService)
	runner.On("Run", mock.Anything, entity.SyncModeFull).Return(finishedReport(entity.SyncModeFull, nil), nil)
	h := newSyncHandler(runner, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sync?mode=full", nil)
	req.Header.Set("x-api-key", "secret")
	rec := httptest.NewRecorder()
	h.Trigger(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "12.34s", resp.Duration)
	assert.Equal(t, "Sync full completed", resp.Message)
	require.NotNil(t, resp.Report)
	assert.Equal(t, entity.SyncStatusSucceeded, resp.Report.Status)
	runner.AssertExpectations(t)
}

func TestSyncTrigger_SessionCookieUsesDefaultMode(t *testing.T) {
	runner := new(MockSyncService)
	runner.On("Run", mock.Anything, entity.SyncModeIncremental).Return(finishedReport(entity.SyncModeIncremental, nil), nil)
	h := newSyncHandler(runner, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	req.AddCookie(&http.Cookie{Name: "auth_session", Value: "authenticated"})
	rec := httptest.NewRecorder()
	h.Trigger(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	runner.AssertExpectations(t)
}

// blockingRunner waits for release, then fails if the context it got was cancelled.
type blockingRunner struct {
	MockSyncService
	started chan struct{}
	release chan struct{}
}

func (b *blockingRunner) Run(ctx context.Context, mode entity.SyncMode) (*entity.SyncReport, error) {
	close(b.started)
	<-b.release
	if err := ctx.Err(); err != nil {
		return finishedReport(mode, err), err
	}
	return finishedReport(mode, nil), nil
}

func TestSyncTrigger_ClientDisconnectDoesNotAbortRun(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	h := newSyncHandler(runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil).WithContext(ctx)
	req.Header.Set("x-api-key", "secret")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.Trigger(rec, req)
		close(done)
	}()

	<-runner.started
	cancel()
	close(runner.release)
	<-done

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode(t, rec).Success)
}

func TestSyncTrigger_Errors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		runErr   error
		report   *entity.SyncReport
		wantCode int
	}{
		{name: "invalid mode", query: "?mode=weekly", wantCode: http.StatusBadRequest},
		{name: "in progress", runErr: entity.ErrSyncInProgress, wantCode: http.StatusConflict},
		{
			name:     "run failed",
			runErr:   errors.New("kommo events page 2 failed after 3 attempts"),
			report:   finishedReport(entity.SyncModeIncremental, errors.New("kommo events page 2 failed after 3 attempts")),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(MockSyncService)
			if tt.runErr != nil {
				runner.On("Run", mock.Anything, entity.SyncModeIncremental).Return(tt.report, tt.runErr)
			}
			h := newSyncHandler(runner, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/sync"+tt.query, nil)
			req.Header.Set("x-api-key", "secret")
			rec := httptest.NewRecorder()
			h.Trigger(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			if tt.runErr != nil {
				assert.Equal(t, tt.runErr.Error(), resp.Message)
			}
		})
	}
}

func TestSyncTrigger_AsyncPublishes(t *testing.T) {
	runner := new(MockSyncService)
	publisher := new(MockPublisher)
	publisher.On("PublishSyncRequest", mock.Anything, mock.MatchedBy(func(r queue.SyncRequest) bool {
		return r.Mode == entity.SyncModeFull && r.RequestedBy == "api-key" && r.RequestID != ""
	})).Return(nil)
	h := newSyncHandler(runner, publisher)

	req := httptest.NewRequest(http.MethodPost, "/api/sync?mode=full&async=true", nil)
	req.Header.Set("x-api-key", "secret")
	rec := httptest.NewRecorder()
	h.Trigger(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)
	publisher.AssertExpectations(t)
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestSyncTrigger_AsyncWithoutQueue(t *testing.T) {
	h := newSyncHandler(new(MockSyncService), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sync?async=true", nil)
	req.Header.Set("x-api-key", "secret")
	rec := httptest.NewRecorder()
	h.Trigger(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSyncStatus(t *testing.T) {
	runner := new(MockSyncService)
	runner.On("Running").Return(true)
	runner.On("LastRun", mock.Anything).Return(finishedReport(entity.SyncModeFull, nil), nil)
	h := newSyncHandler(runner, nil)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/sync", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp SyncStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Running)
	require.NotNil(t, resp.LastRun)
	assert.Equal(t, entity.SyncModeFull, resp.LastRun.Mode)
}
