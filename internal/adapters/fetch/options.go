package fetch

import (
	"net/http"
	"time"

	"github.com/okian/tiermark/pkg/logger"
)

// Default fetcher configuration constants.
const (
	defaultTimeout   = 10 * time.Second
	defaultMaxBytes  = 5 << 20
	defaultUserAgent = "tiermark/1.0"
)

// Option applies a configuration option to the Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds a single fetch.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBytes caps the response body size.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}
