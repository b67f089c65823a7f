package kommo

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Lead is the raw lead record returned by GET /leads.
type Lead struct {
	ID                 int64              `json:"id"`
	Name               string             `json:"name"`
	Price              int64              `json:"price"`
	ResponsibleUserID  int64              `json:"responsible_user_id"`
	StatusID           int64              `json:"status_id"`
	PipelineID         int64              `json:"pipeline_id"`
	CreatedAt          int64              `json:"created_at"`
	UpdatedAt          int64              `json:"updated_at"`
	ClosedAt           *int64             `json:"closed_at"`
	IsDeleted          bool               `json:"is_deleted"`
	CustomFieldsValues []CustomFieldValue `json:"custom_fields_values"`
	Embedded           struct {
		Contacts []Contact `json:"contacts"`
	} `json:"_embedded"`
}

type CustomFieldValue struct {
	FieldID   int64  `json:"field_id"`
	FieldName string `json:"field_name"`
	Values    []struct {
		Value any `json:"value"`
	} `json:"values"`
}

type Contact struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Event is the raw record returned by GET /events.
type Event struct {
	ID          FlexID          `json:"id"`
	Type        string          `json:"type"`
	EntityID    int64           `json:"entity_id"`
	EntityType  string          `json:"entity_type"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   int64           `json:"created_at"`
	ValueBefore json.RawMessage `json:"value_before"`
	ValueAfter  json.RawMessage `json:"value_after"`
}

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
	Rights   struct {
		IsActive *bool `json:"is_active"`
		IsAdmin  bool  `json:"is_admin"`
	} `json:"rights"`
}

type Pipeline struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Sort     int    `json:"sort"`
	IsMain   bool   `json:"is_main"`
	Embedded struct {
		Statuses []Status `json:"statuses"`
	} `json:"_embedded"`
}

type Status struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Sort       int    `json:"sort"`
	Color      string `json:"color"`
	PipelineID int64  `json:"pipeline_id"`
}

// FlexID accepts both JSON strings and numbers. Kommo returns event ids as
// strings but older exports carry them as numbers.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string {
	return string(id)
}
