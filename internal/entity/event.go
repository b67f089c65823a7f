package entity

import "time"

// Event is an append-only audit record of a change on a lead.
// Kommo identifies events with opaque string ids.
type Event struct {
	ID            string    `json:"id"`
	LeadID        int64     `json:"lead_id"`
	EventType     string    `json:"event_type"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedByID   int64     `json:"created_by_id"`
	CreatedByName string    `json:"created_by_name"`
	ValueBefore   *string   `json:"value_before,omitempty"`
	ValueAfter    *string   `json:"value_after,omitempty"`
	LastSyncedAt  time.Time `json:"last_synced_at"`
}
