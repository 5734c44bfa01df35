package hls

import (
	"maps"
	"time"
)

// Config holds configuration for the manifest engine. Demuxing and
// stream-detection settings have no home here; the engine stops at the
// manifest layer.
type Config struct {
	Parser  *ParserConfig  `json:"parser"`
	HTTP    *HTTPConfig    `json:"http"`
	Refresh *RefreshConfig `json:"refresh"`
}

// ParserConfig controls lexing/attribute-parsing strictness.
type ParserConfig struct {
	StrictMode        bool `json:"strict_mode"`
	IgnoreUnknownTags bool `json:"ignore_unknown_tags"`
}

// HTTPConfig holds HTTP transport configuration for manifest and segment
// fetches.
type HTTPConfig struct {
	UserAgent         string            `json:"user_agent"`
	AcceptHeader      string            `json:"accept_header"`
	ConnectionTimeout time.Duration     `json:"connection_timeout"`
	ReadTimeout       time.Duration     `json:"read_timeout"`
	MaxRedirects      int               `json:"max_redirects"`
	CustomHeaders     map[string]string `json:"custom_headers"`
}

// RefreshConfig bounds the live-playlist refresh loop.
type RefreshConfig struct {
	// MinUpdateIntervalMS floors the refresh period regardless of what
	// EXT-X-TARGETDURATION computes, so a misbehaving origin can't cause
	// a refresh storm.
	MinUpdateIntervalMS uint32 `json:"min_update_interval_ms"`
	// MaxUpdateIntervalMS is the interval assumed until the first
	// EXT-X-TARGETDURATION narrows it.
	MaxUpdateIntervalMS uint32 `json:"max_update_interval_ms"`
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() *Config {
	return &Config{
		Parser: &ParserConfig{
			StrictMode:        false,
			IgnoreUnknownTags: true,
		},
		HTTP: &HTTPConfig{
			UserAgent:         "hlstree/1.0",
			AcceptHeader:      "application/vnd.apple.mpegurl,application/x-mpegURL,*/*",
			ConnectionTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			MaxRedirects:      5,
			CustomHeaders:     map[string]string{},
		},
		Refresh: &RefreshConfig{
			MinUpdateIntervalMS: 1000,
			MaxUpdateIntervalMS: 6 * 1000,
		},
	}
}

// GetHTTPHeaders builds the header set applied to every manifest/segment
// request.
func (c *Config) GetHTTPHeaders() map[string]string {
	headers := make(map[string]string)
	headers["User-Agent"] = c.HTTP.UserAgent
	headers["Accept"] = c.HTTP.AcceptHeader
	maps.Copy(headers, c.HTTP.CustomHeaders)
	return headers
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.HTTP.ConnectionTimeout <= 0 {
		return NewStreamError("", ErrCodeInvalidFormat, "HTTP connection timeout must be positive", nil)
	}
	if c.HTTP.ReadTimeout <= 0 {
		return NewStreamError("", ErrCodeInvalidFormat, "HTTP read timeout must be positive", nil)
	}
	if c.HTTP.MaxRedirects < 0 {
		return NewStreamError("", ErrCodeInvalidFormat, "max redirects cannot be negative", nil)
	}
	if c.Refresh.MinUpdateIntervalMS == 0 {
		return NewStreamError("", ErrCodeInvalidFormat, "min update interval must be positive", nil)
	}
	if c.Refresh.MaxUpdateIntervalMS < c.Refresh.MinUpdateIntervalMS {
		return NewStreamError("", ErrCodeInvalidFormat, "max update interval cannot be below the minimum", nil)
	}
	return nil
}
