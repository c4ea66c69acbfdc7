package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserInfoFromFlags(t *testing.T) {
	require.NoError(t, PlanCmd.ParseFlags([]string{
		"--budget", "900",
		"--interests", "art, food ,",
		"--previous", "Japan",
		"--duration", "4",
		"--origin", "Paris",
	}))

	info, err := userInfoFromFlags(PlanCmd)
	require.NoError(t, err)
	assert.Equal(t, 900.0, info.Budget)
	assert.Equal(t, []string{"art", "food"}, info.Interests)
	assert.Equal(t, []string{"Japan"}, info.PreviousDestinations)
	assert.Equal(t, 4, info.Duration)
	assert.Equal(t, "Paris", info.Origin)

	_, err = time.Parse(time.DateOnly, info.TravelDate)
	assert.NoError(t, err)
	assert.NoError(t, info.Validate())
}

func TestTrimAll(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, trimAll([]string{" a", "", "b ", "  "}))
	assert.Empty(t, trimAll(nil))
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["plan"])
	assert.True(t, names["index"])
	assert.True(t, names["history"])
}
