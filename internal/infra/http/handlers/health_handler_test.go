package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ok := PingFunc(func(ctx context.Context) error { return nil })
	down := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		db         Pinger
		redis      Pinger
		rabbit     func() bool
		wantCode   int
		wantStatus string
	}{
		{name: "all healthy", db: ok, redis: ok, rabbit: func() bool { return true }, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "optional deps missing", db: ok, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "database down", db: down, redis: ok, wantCode: http.StatusServiceUnavailable, wantStatus: "degraded"},
		{name: "rabbit closed", db: ok, rabbit: func() bool { return false }, wantCode: http.StatusServiceUnavailable, wantStatus: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.rabbit, tt.redis, "https://acme.kommo.com/api/v4")
			rec := httptest.NewRecorder()

			h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "configured", resp.Dependencies["kommo"])
		})
	}
}
