package kommo

import (
	"strings"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

// TeamResolver maps an advisor email to a sales team; nil when unknown.
type TeamResolver interface {
	TeamForEmail(email string) *string
}

func MapUser(raw User, teams TeamResolver, now time.Time) *entity.User {
	user := &entity.User{
		ID:           raw.ID,
		Name:         raw.Name,
		IsActive:     true,
		LastSyncedAt: now,
	}

	if email := strings.TrimSpace(raw.Email); email != "" {
		user.Email = &email
		if teams != nil {
			user.Team = teams.TeamForEmail(email)
		}
	}

	switch {
	case raw.Role != "":
		role := raw.Role
		user.Role = &role
	case raw.Rights.IsAdmin:
		role := "admin"
		user.Role = &role
	}

	switch {
	case raw.IsActive != nil:
		user.IsActive = *raw.IsActive
	case raw.Rights.IsActive != nil:
		user.IsActive = *raw.Rights.IsActive
	}

	return user
}
