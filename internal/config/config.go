// Package config defines service configuration and how it is loaded.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory report queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of report workers.
	WorkerCount int `koanf:"worker_count"`

	// RenderDelayMS is the default delay for scheduled renders.
	RenderDelayMS int `koanf:"render_delay_ms"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// IconBaseURL prefixes icon sources in rendered pages.
	IconBaseURL string `koanf:"icon_base_url"`

	// AnchorID is the id of the element the overlay attaches to.
	AnchorID string `koanf:"anchor_id"`

	// SummaryID is the id given to the injected summary paragraph.
	SummaryID string `koanf:"summary_id"`

	// FetchTimeoutMS and FetchMaxBytes bound article downloads.
	FetchTimeoutMS int   `koanf:"fetch_timeout_ms"`
	FetchMaxBytes  int64 `koanf:"fetch_max_bytes"`

	// GeminiAPIKey enables AI summaries. Without it summaries are extractive.
	GeminiAPIKey string `koanf:"gemini_api_key"`

	// GeminiModel selects the Gemini model.
	GeminiModel string `koanf:"gemini_model"`

	// SummaryMaxChars caps generated summaries.
	SummaryMaxChars int `koanf:"summary_max_chars"`

	// ClampRatings clamps out-of-range ratings instead of rejecting them.
	ClampRatings bool `koanf:"clamp_ratings"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		RenderDelayMS:       2000,
		MaxLeaderboardLimit: 100,
		IconBaseURL:         "/icons",
		AnchorID:            "main-heading",
		SummaryID:           "summary",
		FetchTimeoutMS:      10_000,
		FetchMaxBytes:       5 << 20,
		GeminiModel:         "gemini-2.5-flash",
		SummaryMaxChars:     400,
	}
}

// RenderDelay returns RenderDelayMS as a duration.
func (c *Config) RenderDelay() time.Duration {
	return time.Duration(c.RenderDelayMS) * time.Millisecond
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}
