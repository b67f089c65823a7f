package kommo

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/xavierca1/salesops-sync/internal/entity"
)

// SystemActor names events whose author is not a known user (robots, integrations).
const SystemActor = "System"

func MapEvent(raw Event, users map[int64]User, now time.Time) *entity.Event {
	actor := SystemActor
	if u, ok := users[raw.CreatedBy]; ok && u.Name != "" {
		actor = u.Name
	}

	return &entity.Event{
		ID:            raw.ID.String(),
		LeadID:        raw.EntityID,
		EventType:     raw.Type,
		CreatedAt:     unixTime(raw.CreatedAt),
		CreatedByID:   raw.CreatedBy,
		CreatedByName: actor,
		ValueBefore:   payload(raw.ValueBefore),
		ValueAfter:    payload(raw.ValueAfter),
		LastSyncedAt:  now,
	}
}

// payload keeps the value blob as compact JSON text; absent or null blobs are nil.
func payload(raw json.RawMessage) *string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		s := string(trimmed)
		return &s
	}
	s := buf.String()
	return &s
}
