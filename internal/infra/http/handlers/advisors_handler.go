package handlers

import (
	"context"
	"net/http"

	"github.com/xavierca1/salesops-sync/internal/entity"
	"github.com/xavierca1/salesops-sync/internal/infra/logging"
)

type AdvisorLister interface {
	ListAdvisors(ctx context.Context) ([]*entity.User, error)
}

type TeamResolver interface {
	TeamForEmail(email string) *string
}

type AdvisorsHandler struct {
	Users AdvisorLister
	Teams TeamResolver
}

func NewAdvisorsHandler(users AdvisorLister, teams TeamResolver) *AdvisorsHandler {
	return &AdvisorsHandler{Users: users, Teams: teams}
}

type AdvisorsResponse struct {
	Advisors []*entity.User `json:"advisors"`
}

// List handles GET /api/advisors. Users synced before their email was added to
// the team table get their team from the directory at read time.
func (h *AdvisorsHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListAdvisors(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("❌ Could not list advisors")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list advisors"})
		return
	}

	for _, u := range users {
		if u.Team == nil && u.Email != nil && h.Teams != nil {
			u.Team = h.Teams.TeamForEmail(*u.Email)
		}
	}
	if users == nil {
		users = []*entity.User{}
	}

	writeJSON(w, http.StatusOK, AdvisorsResponse{Advisors: users})
}
