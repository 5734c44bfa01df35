package hls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "hlstree/1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, uint32(1000), cfg.Refresh.MinUpdateIntervalMS)
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	t.Run("non-positive connection timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HTTP.ConnectionTimeout = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative redirects", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.HTTP.MaxRedirects = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero min update interval", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Refresh.MinUpdateIntervalMS = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("max below min", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Refresh.MaxUpdateIntervalMS = 500
		cfg.Refresh.MinUpdateIntervalMS = 1000
		assert.Error(t, cfg.Validate())
	})
}

func TestGetHTTPHeadersMergesCustom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.CustomHeaders["X-Custom"] = "value"

	headers := cfg.GetHTTPHeaders()
	assert.Equal(t, cfg.HTTP.UserAgent, headers["User-Agent"])
	assert.Equal(t, cfg.HTTP.AcceptHeader, headers["Accept"])
	assert.Equal(t, "value", headers["X-Custom"])
}
