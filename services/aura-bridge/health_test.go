package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthServer(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		wantCode   int
		wantStatus string
	}{
		{"connected", true, http.StatusOK, "ok"},
		{"disconnected", false, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthServer(func() bool { return tt.connected }, discardLogger())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var report HealthReport
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, tt.connected, report.MQTTConnected)
			assert.GreaterOrEqual(t, report.UptimeSeconds, int64(0))
		})
	}
}
