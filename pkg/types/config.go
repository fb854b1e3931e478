// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultUserAgent is the desktop browser User-Agent sent with every
// request to the search host.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Ubuntu Chromium/41.0.2272.76 Chrome/41.0.2272.76 Safari/537.36"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ScholarConfig holds settings for the scholar session.
type ScholarConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Host is the search host, scheme included (e.g. "https://scholar.google.com").
	Host string `json:"host" yaml:"host" mapstructure:"host"`

	// MinDelay is the fixed part of the pause taken before every page fetch.
	MinDelay time.Duration `json:"min_delay" yaml:"min_delay" mapstructure:"min_delay"`

	// DelayJitter is the upper bound of the random part added to MinDelay.
	// The pause is drawn from [MinDelay, MinDelay+DelayJitter).
	DelayJitter time.Duration `json:"delay_jitter" yaml:"delay_jitter" mapstructure:"delay_jitter"`

	// RequestsPerSecond caps every request the session makes, including
	// challenge image and redirect requests. Zero means no cap.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// Burst is the token bucket size for RequestsPerSecond (default 1).
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// MaxChallengeAttempts bounds how many verification challenges a single
	// fetch may go through before failing (default 3).
	MaxChallengeAttempts int `json:"max_challenge_attempts" yaml:"max_challenge_attempts" mapstructure:"max_challenge_attempts"`

	// ImageHostURL is the upload endpoint used to publish challenge images
	// for the human operator.
	ImageHostURL string `json:"image_host_url" yaml:"image_host_url" mapstructure:"image_host_url"`
}

// DefaultScholarConfig returns the settings used against the live host.
func DefaultScholarConfig() ScholarConfig {
	return ScholarConfig{
		HTTPConfig: HTTPConfig{
			Timeout:   60 * time.Second,
			UserAgent: DefaultUserAgent,
		},
		Host:                 "https://scholar.google.com",
		MinDelay:             5 * time.Second,
		DelayJitter:          5 * time.Second,
		RequestsPerSecond:    1,
		Burst:                1,
		MaxChallengeAttempts: 3,
		ImageHostURL:         "http://postimage.org/",
	}
}

// ArchiveConfig holds settings for the record archive.
type ArchiveConfig struct {
	// Path is the SQLite database file (e.g. "scholarly.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}
