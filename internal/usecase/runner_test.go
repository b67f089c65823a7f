package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

type orchestratorFunc func(ctx context.Context, report *entity.SyncReport) error

func (f orchestratorFunc) Execute(ctx context.Context, report *entity.SyncReport) error {
	return f(ctx, report)
}

type recordingStatus struct {
	mu      sync.Mutex
	reports []entity.SyncReport
}

func (s *recordingStatus) Save(ctx context.Context, report *entity.SyncReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, *report)
	return nil
}

func (s *recordingStatus) Last(ctx context.Context) (*entity.SyncReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reports) == 0 {
		return nil, nil
	}
	last := s.reports[len(s.reports)-1]
	return &last, nil
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifySyncFailure(ctx context.Context, report *entity.SyncReport) error {
	return m.Called(ctx, report).Error(0)
}

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestSyncRunner_SuccessfulRun(t *testing.T) {
	status := &recordingStatus{}
	incremental := orchestratorFunc(func(ctx context.Context, report *entity.SyncReport) error {
		report.EventsWritten = 7
		return nil
	})
	runner := NewSyncRunner(&fakeKommo{}, nil, incremental,
		WithStatusStore(status),
		WithClock(fixedClock(runTime, runTime.Add(1234*time.Millisecond))),
	)

	report, err := runner.Run(context.Background(), entity.SyncModeIncremental)

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, entity.SyncStatusSucceeded, report.Status)
	assert.Equal(t, "1.23s", report.DurationString())
	assert.Equal(t, 7, report.EventsWritten)

	require.Len(t, status.reports, 2)
	assert.Equal(t, entity.SyncStatusRunning, status.reports[0].Status)
	last, err := runner.LastRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.RunID, last.RunID)
	assert.False(t, runner.Running())
}

func TestSyncRunner_RejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	full := orchestratorFunc(func(ctx context.Context, report *entity.SyncReport) error {
		close(started)
		<-release
		return nil
	})
	runner := NewSyncRunner(&fakeKommo{}, full, full)

	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(context.Background(), entity.SyncModeFull)
		done <- err
	}()
	<-started

	assert.True(t, runner.Running())
	_, err := runner.Run(context.Background(), entity.SyncModeIncremental)
	assert.ErrorIs(t, err, entity.ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, runner.Running())
}

func TestSyncRunner_FailureIsReportedAndNotified(t *testing.T) {
	boom := errors.New("kommo events page 3 failed after 3 attempts")
	status := &recordingStatus{}
	notifier := new(MockNotifier)
	notifier.On("NotifySyncFailure", mock.Anything, mock.MatchedBy(func(r *entity.SyncReport) bool {
		return r.Status == entity.SyncStatusFailed && r.Error == boom.Error()
	})).Return(nil)
	broken := new(MockNotifier)
	broken.On("NotifySyncFailure", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	full := orchestratorFunc(func(ctx context.Context, report *entity.SyncReport) error {
		report.EventsWritten = 500
		return boom
	})
	runner := NewSyncRunner(&fakeKommo{}, full, nil, WithStatusStore(status), WithFailureNotifier(broken), WithFailureNotifier(notifier))

	report, err := runner.Run(context.Background(), entity.SyncModeFull)

	assert.ErrorIs(t, err, boom)
	require.NotNil(t, report)
	assert.Equal(t, 500, report.EventsWritten)
	assert.Equal(t, entity.SyncStatusFailed, status.reports[len(status.reports)-1].Status)
	broken.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSyncRunner_PingFailureSkipsOrchestrator(t *testing.T) {
	called := false
	full := orchestratorFunc(func(ctx context.Context, report *entity.SyncReport) error {
		called = true
		return nil
	})
	offline := errors.New("kommo connectivity check failed: status 401")
	runner := NewSyncRunner(&fakeKommo{pingErr: offline}, full, full)

	report, err := runner.Run(context.Background(), entity.SyncModeFull)

	assert.ErrorIs(t, err, offline)
	assert.False(t, called)
	assert.Equal(t, entity.SyncStatusFailed, report.Status)
}

func TestSyncRunner_UnknownMode(t *testing.T) {
	runner := NewSyncRunner(&fakeKommo{}, nil, nil)

	_, err := runner.Run(context.Background(), entity.SyncMode("weekly"))

	assert.ErrorIs(t, err, entity.ErrInvalidSyncMode)
}
