package entity

import (
	"time"
)

// Lead is a Kommo lead normalized for the dashboard tables.
// AppointmentScheduledAt and VisitedAt are derived locally: they are never read
// from Kommo, only stamped by the lead upsert when the flag flips to true.
type Lead struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	PipelineID          int64      `json:"pipeline_id"`
	PipelineName        string     `json:"pipeline_name"`
	StatusID            int64      `json:"status_id"`
	StatusName          string     `json:"status_name"`
	ResponsibleUserID   int64      `json:"responsible_user_id"`
	ResponsibleUserName string     `json:"responsible_user_name"`
	Price               int64      `json:"price"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
	IsDeleted           bool       `json:"is_deleted"`

	UTMSource   *string `json:"utm_source,omitempty"`
	UTMCampaign *string `json:"utm_campaign,omitempty"`
	UTMMedium   *string `json:"utm_medium,omitempty"`
	Development *string `json:"development,omitempty"`
	Model       *string `json:"model,omitempty"`
	Source      *string `json:"source,omitempty"`
	Medium      *string `json:"medium,omitempty"`
	ContactName *string `json:"contact_name,omitempty"`

	AppointmentScheduled   bool       `json:"appointment_scheduled"`
	AppointmentScheduledAt *time.Time `json:"appointment_scheduled_at,omitempty"`
	Visited                bool       `json:"visited"`
	VisitedAt              *time.Time `json:"visited_at,omitempty"`

	LastSyncedAt time.Time `json:"last_synced_at"`
}

// LeadFlags is the stored checkbox state of a lead, as read back before an upsert.
type LeadFlags struct {
	AppointmentScheduled   bool
	AppointmentScheduledAt *time.Time
	Visited                bool
	VisitedAt              *time.Time
}

// ResolveCheckboxTimestamps fills the derived timestamps of the incoming leads
// using the previously stored flags. A timestamp is stamped with now only on a
// false->true transition (or a first sighting with the flag set), carried over
// while the flag stays true and cleared when the flag is false.
func ResolveCheckboxTimestamps(leads []*Lead, previous map[int64]LeadFlags, now time.Time) {
	for _, lead := range leads {
		prev, seen := previous[lead.ID]

		lead.AppointmentScheduledAt = resolveFlag(
			lead.AppointmentScheduled, seen, prev.AppointmentScheduled, prev.AppointmentScheduledAt, now,
		)
		lead.VisitedAt = resolveFlag(
			lead.Visited, seen, prev.Visited, prev.VisitedAt, now,
		)
	}
}

func resolveFlag(current, seen, wasSet bool, stampedAt *time.Time, now time.Time) *time.Time {
	if !current {
		return nil
	}
	if !seen || !wasSet {
		t := now
		return &t
	}
	// Rows written before the timestamp columns existed can be true with a NULL stamp.
	if stampedAt == nil {
		return nil
	}
	t := *stampedAt
	return &t
}
