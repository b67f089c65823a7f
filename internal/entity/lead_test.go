package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCheckboxTimestamps_NewLeadWithFlagIsStamped(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	lead := &Lead{ID: 1, AppointmentScheduled: true}

	ResolveCheckboxTimestamps([]*Lead{lead}, map[int64]LeadFlags{}, now)

	require.NotNil(t, lead.AppointmentScheduledAt)
	assert.Equal(t, now, *lead.AppointmentScheduledAt)
	assert.Nil(t, lead.VisitedAt)
}

func TestResolveCheckboxTimestamps_FalseToTrueStampsNow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	lead := &Lead{ID: 123, Visited: true}
	previous := map[int64]LeadFlags{123: {Visited: false}}

	ResolveCheckboxTimestamps([]*Lead{lead}, previous, now)

	require.NotNil(t, lead.VisitedAt)
	assert.Equal(t, now, *lead.VisitedAt)
}

func TestResolveCheckboxTimestamps_StaysTrueKeepsOriginalStamp(t *testing.T) {
	first := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	now := first.Add(72 * time.Hour)
	lead := &Lead{ID: 7, AppointmentScheduled: true, Visited: true}
	previous := map[int64]LeadFlags{7: {
		AppointmentScheduled:   true,
		AppointmentScheduledAt: &first,
		Visited:                true,
		VisitedAt:              &first,
	}}

	ResolveCheckboxTimestamps([]*Lead{lead}, previous, now)

	require.NotNil(t, lead.AppointmentScheduledAt)
	require.NotNil(t, lead.VisitedAt)
	assert.Equal(t, first, *lead.AppointmentScheduledAt)
	assert.Equal(t, first, *lead.VisitedAt)
}

func TestResolveCheckboxTimestamps_FalseClearsStamp(t *testing.T) {
	first := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	lead := &Lead{ID: 7, AppointmentScheduled: false}
	previous := map[int64]LeadFlags{7: {AppointmentScheduled: true, AppointmentScheduledAt: &first}}

	ResolveCheckboxTimestamps([]*Lead{lead}, previous, first.Add(time.Hour))

	assert.Nil(t, lead.AppointmentScheduledAt)
}

func TestResolveCheckboxTimestamps_RetoggleStampsNewTime(t *testing.T) {
	t1 := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t2.Add(24 * time.Hour)
	stored := map[int64]LeadFlags{}

	apply := func(flag bool, now time.Time) *Lead {
		lead := &Lead{ID: 55, AppointmentScheduled: flag}
		ResolveCheckboxTimestamps([]*Lead{lead}, stored, now)
		stored[55] = LeadFlags{AppointmentScheduled: lead.AppointmentScheduled, AppointmentScheduledAt: lead.AppointmentScheduledAt}
		return lead
	}

	l1 := apply(true, t1)
	require.NotNil(t, l1.AppointmentScheduledAt)
	assert.Equal(t, t1, *l1.AppointmentScheduledAt)

	l2 := apply(false, t2)
	assert.Nil(t, l2.AppointmentScheduledAt)

	l3 := apply(true, t3)
	require.NotNil(t, l3.AppointmentScheduledAt)
	assert.Equal(t, t3, *l3.AppointmentScheduledAt)
}

func TestResolveCheckboxTimestamps_DoesNotAliasPreviousPointer(t *testing.T) {
	first := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	lead := &Lead{ID: 1, Visited: true}
	previous := map[int64]LeadFlags{1: {Visited: true, VisitedAt: &first}}

	ResolveCheckboxTimestamps([]*Lead{lead}, previous, first.Add(time.Hour))
	*lead.VisitedAt = lead.VisitedAt.Add(time.Minute)

	assert.Equal(t, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), first)
}

func TestParseSyncMode(t *testing.T) {
	mode, err := ParseSyncMode("", SyncModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, SyncModeIncremental, mode)

	mode, err = ParseSyncMode(" FULL ", SyncModeIncremental)
	require.NoError(t, err)
	assert.Equal(t, SyncModeFull, mode)

	_, err = ParseSyncMode("weekly", SyncModeIncremental)
	assert.ErrorIs(t, err, ErrInvalidSyncMode)
}

func TestSyncReportFinish(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewSyncReport(SyncModeFull, start)
	r.Finish(start.Add(1500*time.Millisecond), nil)

	assert.Equal(t, SyncStatusSucceeded, r.Status)
	assert.Equal(t, "1.50s", r.DurationString())
	assert.False(t, r.Changed())

	r.EventsWritten = 3
	assert.True(t, r.Changed())
}
