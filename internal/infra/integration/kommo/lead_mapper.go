package kommo

import (
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

// UnknownName is stored when a pipeline, status or user id has no match in the lookups.
const UnknownName = "Unknown"

// Custom field ids of the account's lead card.
const (
	FieldUTMSource   int64 = 1681790
	FieldUTMCampaign int64 = 1681788
	FieldUTMMedium   int64 = 1681786

	FieldDevelopment          int64 = 2093484
	FieldModel                int64 = 2093544
	FieldAppointmentScheduled int64 = 2093478 // checkbox
	FieldVisited              int64 = 2093480 // checkbox
	FieldSource               int64 = 2093540 // select
	FieldMedium               int64 = 2093542 // select
)

// IndexPipelines builds the pipeline-id lookup used by MapLead.
func IndexPipelines(pipelines []Pipeline) map[int64]Pipeline {
	m := make(map[int64]Pipeline, len(pipelines))
	for _, p := range pipelines {
		m[p.ID] = p
	}
	return m
}

// IndexUsers builds the user-id lookup used by MapLead and MapEvent.
func IndexUsers(users []User) map[int64]User {
	m := make(map[int64]User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	return m
}

// MapLead normalizes a Kommo lead. The checkbox timestamps are left nil on
// purpose: they depend on the stored row and are resolved at upsert time.
func MapLead(raw Lead, pipelines map[int64]Pipeline, users map[int64]User, now time.Time) *entity.Lead {
	pipelineName, statusName := UnknownName, UnknownName
	if p, ok := pipelines[raw.PipelineID]; ok {
		pipelineName = p.Name
		for _, s := range p.Embedded.Statuses {
			if s.ID == raw.StatusID {
				statusName = s.Name
				break
			}
		}
	}

	responsible := UnknownName
	if u, ok := users[raw.ResponsibleUserID]; ok && u.Name != "" {
		responsible = u.Name
	}

	utmSource := customField(raw, FieldUTMSource)
	source := customField(raw, FieldSource)
	if source == nil {
		source = utmSource
	}

	lead := &entity.Lead{
		ID:                  raw.ID,
		Name:                raw.Name,
		PipelineID:          raw.PipelineID,
		PipelineName:        pipelineName,
		StatusID:            raw.StatusID,
		StatusName:          statusName,
		ResponsibleUserID:   raw.ResponsibleUserID,
		ResponsibleUserName: responsible,
		Price:               raw.Price,
		CreatedAt:           unixTime(raw.CreatedAt),
		UpdatedAt:           unixTime(raw.UpdatedAt),
		IsDeleted:           raw.IsDeleted,

		UTMSource:   utmSource,
		UTMCampaign: customField(raw, FieldUTMCampaign),
		UTMMedium:   customField(raw, FieldUTMMedium),
		Development: customField(raw, FieldDevelopment),
		Model:       customField(raw, FieldModel),
		Source:      source,
		Medium:      customField(raw, FieldMedium),

		AppointmentScheduled: checkboxField(raw, FieldAppointmentScheduled),
		Visited:              checkboxField(raw, FieldVisited),

		LastSyncedAt: now,
	}

	if raw.ClosedAt != nil && *raw.ClosedAt > 0 {
		closed := unixTime(*raw.ClosedAt)
		lead.ClosedAt = &closed
	}
	if len(raw.Embedded.Contacts) > 0 && raw.Embedded.Contacts[0].Name != "" {
		name := raw.Embedded.Contacts[0].Name
		lead.ContactName = &name
	}

	return lead
}

func customFieldValue(raw Lead, fieldID int64) any {
	for _, f := range raw.CustomFieldsValues {
		if f.FieldID == fieldID {
			if len(f.Values) == 0 {
				return nil
			}
			return f.Values[0].Value
		}
	}
	return nil
}

// customField returns the first value of a text/select field as a string.
// Empty strings, zero and false read as "not set".
func customField(raw Lead, fieldID int64) *string {
	var s string
	switch v := customFieldValue(raw, fieldID).(type) {
	case string:
		s = strings.TrimSpace(v)
	case float64:
		if v == 0 {
			return nil
		}
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if !v {
			return nil
		}
		s = "true"
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// checkboxField accepts the encodings Kommo uses for a ticked checkbox: true, "true", 1 and "1".
func checkboxField(raw Lead, fieldID int64) bool {
	switch v := customFieldValue(raw, fieldID).(type) {
	case bool:
		return v
	case float64:
		return v == 1
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
