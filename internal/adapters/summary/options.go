package summary

import "github.com/okian/tiermark/pkg/logger"

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-2.5-flash"
	// DefaultMaxChars bounds every summary.
	DefaultMaxChars = 400
)

// Option configures a summarizer.
type Option func(*settings)

type settings struct {
	model    string
	maxChars int
	logger   logger.Logger
	gen      generator
}

func newSettings(opts []Option) settings {
	s := settings{model: DefaultModel, maxChars: DefaultMaxChars}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("summary")
	}
	return s
}

// WithModel selects the Gemini model.
func WithModel(model string) Option {
	return func(s *settings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithMaxChars caps summary length in runes.
func WithMaxChars(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// withGenerator swaps the content generator; used by tests.
func withGenerator(g generator) Option {
	return func(s *settings) { s.gen = g }
}
