package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	cfg := Config{
		URL:          "redis://:secret@localhost:6380/2",
		ReadTimeout:  time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  4 * time.Second,
	}
	require.True(t, cfg.Enabled())

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 4*time.Second, opts.DialTimeout)
	assert.Equal(t, -1, opts.MaxRetries)
}

func TestOptions_BadURL(t *testing.T) {
	cfg := Config{URL: "http://localhost"}
	_, err := cfg.Options()
	assert.Error(t, err)
	assert.False(t, (&Config{}).Enabled())
}
