package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-planner/server/internal/agent/model"
	errx "github.com/wayfarer-planner/server/internal/core/error"
)

func TestParseCountry(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Portugal", "Portugal"},
		{"  **Portugal**.\n", "Portugal"},
		{"Country: New Zealand", "New Zealand"},
		{"\n\n\"Japan\"\nGreat for food lovers.", "Japan"},
		{"<think>cheap beaches...</think>\nThailand", "Thailand"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := ParseCountry(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCountry_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "**", strings.Repeat("a", 200)} {
		_, err := ParseCountry(in)
		require.Error(t, err)
		assert.Equal(t, errx.KindExternalService, errx.KindOf(err))
		assert.False(t, errx.IsRetryable(err))
	}
}

func TestParseAirportCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LIS", "LIS"},
		{" lis. ", "LIS"},
		{"\"HND\"", "HND"},
		{"The main airport code is NRT", "NRT"},
		{"NOT FOUND", model.NotFoundCode},
		{"not found", model.NotFoundCode},
		{"", model.NotFoundCode},
		{"Lisbon", model.NotFoundCode},
		{"LIS or OPO", model.NotFoundCode},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAirportCode(tt.in))
		})
	}
}

func TestClean_TruncatesAndRepairs(t *testing.T) {
	long := strings.Repeat("é", maxContentLen)
	out := Clean(long)
	assert.LessOrEqual(t, len(out), maxContentLen)
	assert.Equal(t, "ok", Clean("  ok\xff "))
}
