package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/integration/kommo"
)

// fakeKommo serves canned pages. Errors queued for a page are returned first.
type fakeKommo struct {
	mu sync.Mutex

	pingErr    error
	users      []kommo.User
	pipelines  []kommo.Pipeline
	leadPages  [][]kommo.Lead
	eventPages [][]kommo.Event
	eventErrs  map[int][]error

	leadFilters  []kommo.Filter
	eventFilters []kommo.Filter
	eventCalls   int
}

func (f *fakeKommo) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeKommo) GetUsers(ctx context.Context) ([]kommo.User, error) { return f.users, nil }

func (f *fakeKommo) GetPipelines(ctx context.Context) ([]kommo.Pipeline, error) {
	return f.pipelines, nil
}

func (f *fakeKommo) GetLeads(ctx context.Context, filter kommo.Filter, page int) ([]kommo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leadFilters = append(f.leadFilters, filter)
	if page > len(f.leadPages) {
		return nil, nil
	}
	return f.leadPages[page-1], nil
}

func (f *fakeKommo) GetEvents(ctx context.Context, filter kommo.Filter, page int) ([]kommo.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventCalls++
	f.eventFilters = append(f.eventFilters, filter)
	if errs := f.eventErrs[page]; len(errs) > 0 {
		f.eventErrs[page] = errs[1:]
		return nil, errs[0]
	}
	if page > len(f.eventPages) {
		return nil, nil
	}
	return f.eventPages[page-1], nil
}

// memoryStore is an in-memory SyncStore that resolves checkbox timestamps the
// same way the Postgres gateway does.
type memoryStore struct {
	now func() time.Time

	leads     map[int64]*entity.Lead
	events    map[string]*entity.Event
	users     map[int64]*entity.User
	pipelines map[int64]*entity.Pipeline
	statuses  map[int64]*entity.PipelineStatus

	eventBatches int
}

func newMemoryStore(now func() time.Time) *memoryStore {
	return &memoryStore{
		now:       now,
		leads:     map[int64]*entity.Lead{},
		events:    map[string]*entity.Event{},
		users:     map[int64]*entity.User{},
		pipelines: map[int64]*entity.Pipeline{},
		statuses:  map[int64]*entity.PipelineStatus{},
	}
}

func (s *memoryStore) seedLeads(ids ...int64) {
	for _, id := range ids {
		s.leads[id] = &entity.Lead{ID: id, UpdatedAt: time.Unix(1700000000, 0).UTC()}
	}
}

func (s *memoryStore) UpsertUsers(ctx context.Context, users []*entity.User) error {
	for _, u := range users {
		s.users[u.ID] = u
	}
	return nil
}

func (s *memoryStore) UpsertPipelines(ctx context.Context, pipelines []*entity.Pipeline) error {
	for _, p := range pipelines {
		s.pipelines[p.ID] = p
	}
	return nil
}

func (s *memoryStore) UpsertStatuses(ctx context.Context, statuses []*entity.PipelineStatus) error {
	for _, st := range statuses {
		s.statuses[st.ID] = st
	}
	return nil
}

func (s *memoryStore) UpsertLeads(ctx context.Context, leads []*entity.Lead) error {
	previous := make(map[int64]entity.LeadFlags)
	for _, l := range leads {
		if old, ok := s.leads[l.ID]; ok {
			previous[l.ID] = entity.LeadFlags{
				AppointmentScheduled:   old.AppointmentScheduled,
				AppointmentScheduledAt: old.AppointmentScheduledAt,
				Visited:                old.Visited,
				VisitedAt:              old.VisitedAt,
			}
		}
	}
	entity.ResolveCheckboxTimestamps(leads, previous, s.now())
	for _, l := range leads {
		stored := *l
		s.leads[l.ID] = &stored
	}
	return nil
}

func (s *memoryStore) UpsertEvents(ctx context.Context, events []*entity.Event) error {
	s.eventBatches++
	for _, e := range events {
		s.events[e.ID] = e
	}
	return nil
}

func (s *memoryStore) ExistingLeadIDs(ctx context.Context) (entity.IDSet[int64], error) {
	set := entity.NewIDSet[int64]()
	for id := range s.leads {
		set.Add(id)
	}
	return set, nil
}

func (s *memoryStore) ExistingEventIDs(ctx context.Context) (entity.IDSet[string], error) {
	set := entity.NewIDSet[string]()
	for id := range s.events {
		set.Add(id)
	}
	return set, nil
}

func (s *memoryStore) LastSyncedAt(ctx context.Context) (time.Time, error) {
	last := time.Unix(0, 0).UTC()
	for _, l := range s.leads {
		if l.UpdatedAt.After(last) {
			last = l.UpdatedAt
		}
	}
	return last, nil
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecalculateResponseTimes(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockMetrics) RecalculateConversions(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// noSleep records the waits of a RetryPolicy without blocking.
type noSleep struct {
	waits []time.Duration
}

func (n *noSleep) policy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Delay:    5 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			n.waits = append(n.waits, d)
			return nil
		},
	}
}

func eventsFor(prefix string, n int, leadID int64) []kommo.Event {
	out := make([]kommo.Event, n)
	for i := range out {
		out[i] = kommo.Event{
			ID:        kommo.FlexID(prefix + "-" + strconv.Itoa(i)),
			Type:      "lead_status_changed",
			EntityID:  leadID,
			CreatedBy: 5,
			CreatedAt: 1700000000,
		}
	}
	return out
}
