package entity

import "time"

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        *string   `json:"email,omitempty"`
	Role         *string   `json:"role,omitempty"`
	IsActive     bool      `json:"is_active"`
	Team         *string   `json:"team,omitempty"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}
