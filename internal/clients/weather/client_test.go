package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/wayfarer-planner/server/internal/core/error"
)

const sample = `{
  "current_condition": [{"temp_C": "21", "FeelsLikeC": "22", "humidity": "60", "windspeedKmph": "11", "weatherDesc": [{"value": "Partly cloudy"}]}],
  "nearest_area": [{"areaName": [{"value": "Lisbon"}], "country": [{"value": "Portugal"}]}],
  "weather": [
    {"date": "2026-11-20", "maxtempC": "23", "mintempC": "14", "hourly": [{"weatherDesc": [{"value": "Clear"}]}, {"weatherDesc": [{"value": "Sunny"}]}, {"weatherDesc": [{"value": "Clear"}]}]}
  ]
}`

func TestCurrent_ParsesReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/New Zealand", r.URL.Path)
		assert.Equal(t, "j1", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(sample))
	}))
	t.Cleanup(srv.Close)

	report, err := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}).Current(context.Background(), "New Zealand")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon, Portugal", report.Location)
	assert.Equal(t, "21", report.TempC)
	assert.Equal(t, "Partly cloudy", report.Description)
	require.Len(t, report.Forecast, 1)
	assert.Equal(t, Day{Date: "2026-11-20", MinTempC: "14", MaxTempC: "23", Description: "Sunny"}, report.Forecast[0])
	assert.Contains(t, report.String(), "Partly cloudy, 21°C (feels like 22°C), humidity 60%")
}

func TestCurrent_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantRetryable bool
	}{
		{"unavailable", http.StatusServiceUnavailable, "", true},
		{"not found", http.StatusNotFound, "unknown location", false},
		{"malformed", http.StatusOK, "<html>", false},
		{"no current condition", http.StatusOK, `{"current_condition": []}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(srv.Close)

			_, err := NewClient(Config{BaseURL: srv.URL}).Current(context.Background(), "Peru")
			require.Error(t, err)
			assert.Equal(t, errx.KindExternalService, errx.KindOf(err))
			assert.Equal(t, tt.wantRetryable, errx.IsRetryable(err))
		})
	}
}
