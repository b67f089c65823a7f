package entity

import "time"

type Pipeline struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	IsMain       bool      `json:"is_main"`
	SortOrder    int       `json:"sort_order"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// PipelineStatus is one stage of a Pipeline.
type PipelineStatus struct {
	ID           int64     `json:"id"`
	PipelineID   int64     `json:"pipeline_id"`
	Name         string    `json:"name"`
	Color        *string   `json:"color,omitempty"`
	SortOrder    int       `json:"sort_order"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}
