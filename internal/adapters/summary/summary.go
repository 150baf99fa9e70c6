// Package summary produces short verdict summaries for articles.
package summary

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"google.golang.org/genai"

	"github.com/okian/tiermark/pkg/logger"
	"github.com/okian/tiermark/pkg/metrics"
)

// Summarizer produces a summary for an article.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (string, error)
}

// generator is the part of genai.Models we call.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

const promptTemplate = `You review news articles for rigor.
Write a verdict of at most %d characters on how well the article below supports its claims.
Plain text, no markdown, no preamble.

Title: %s

Article:
%s`

// maxPromptRunes bounds how much article text is sent to the model.
const maxPromptRunes = 12_000

// Gemini summarizes through the Gemini API.
type Gemini struct {
	gen      generator
	model    string
	maxChars int
	logger   logger.Logger
}

// NewGemini creates a Gemini summarizer for apiKey.
func NewGemini(ctx context.Context, apiKey string, opts ...Option) (*Gemini, error) {
	s := newSettings(opts)
	if s.gen == nil {
		if apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		s.gen = client.Models
	}
	return &Gemini{gen: s.gen, model: s.model, maxChars: s.maxChars, logger: s.logger}, nil
}

// Summarize implements Summarizer.
func (g *Gemini) Summarize(ctx context.Context, title, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	prompt := fmt.Sprintf(promptTemplate, g.maxChars, strings.TrimSpace(title), Truncate(text, maxPromptRunes))

	resp, err := g.gen.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		metrics.RecordErrorByComponent("summary", "generate")
		return "", fmt.Errorf("%w: %w", ErrGenerate, err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		metrics.RecordErrorByComponent("summary", "empty")
		return "", ErrEmptySummary
	}
	g.logger.Debug(ctx, "summary generated",
		logger.String("model", g.model),
		logger.Int("chars", utf8.RuneCountInString(out)),
	)
	return Truncate(out, g.maxChars), nil
}

// Extractive summarizes offline by keeping the leading sentences.
type Extractive struct {
	maxChars int
}

// NewExtractive creates an offline summarizer.
func NewExtractive(opts ...Option) *Extractive {
	s := settings{maxChars: DefaultMaxChars}
	for _, opt := range opts {
		opt(&s)
	}
	return &Extractive{maxChars: s.maxChars}
}

// Summarize implements Summarizer. Whole sentences are kept while they fit;
// a first sentence longer than the limit is truncated.
func (e *Extractive) Summarize(ctx context.Context, _, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "", ErrEmptyText
	}

	var b strings.Builder
	for _, s := range sentences(text) {
		if b.Len() > 0 && utf8.RuneCountInString(b.String())+1+utf8.RuneCountInString(s) > e.maxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s)
	}
	return Truncate(b.String(), e.maxChars), nil
}

// sentences splits text after '.', '!' or '?' followed by a space.
func sentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])) {
			out = append(out, strings.TrimSpace(string(runes[start:i+1])))
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Truncate shortens s to at most max runes, ending with an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max == 1 {
		return "…"
	}
	return strings.TrimRightFunc(string(runes[:max-1]), unicode.IsSpace) + "…"
}

// New returns a Gemini summarizer when apiKey is set and an Extractive one
// otherwise.
func New(ctx context.Context, apiKey string, opts ...Option) (Summarizer, error) {
	if apiKey == "" {
		return NewExtractive(opts...), nil
	}
	return NewGemini(ctx, apiKey, opts...)
}
