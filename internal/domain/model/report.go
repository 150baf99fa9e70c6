// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/tiermark/internal/domain/tier"
)

// Report is an analysis result submitted for an article. Scores arrive
// precomputed; Text and Summary are optional.
type Report struct {
	ID           string    // unique id assigned at submission
	URL          string    // article URL, the annotation key
	Title        string    // article heading
	Text         string    // article body, used to summarize when Summary is empty
	Summary      string    // caller-supplied summary, wins over generated ones
	Subjectivity float64   // mean sentence subjectivity in [0, 1]
	Polarity     float64   // overall polarity in [-1, 1]
	Evidence     float64   // evidence score in [-1, 1]
	Journalist   string    // byline, if known
	Related      []Link    // related articles linked from the page
	TS           time.Time // submission time
}

// Link is a titled reference to another article.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Annotation is what gets injected next to an article heading.
type Annotation struct {
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	ReportID   string    `json:"report_id"`
	Rating     float64   `json:"rating"`
	Normalized float64   `json:"normalized"`
	Tier       tier.Tier `json:"tier"`
	Icon       string    `json:"icon"`
	Summary    string    `json:"summary,omitempty"`
	Journalist string    `json:"journalist,omitempty"`
	Related    []Link    `json:"related_articles,omitempty"`
	// SubmittedAt is the submission time of the report behind this
	// annotation; stores keep the most recently submitted one.
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RankedAnnotation is an annotation with its position in the rigor ranking.
type RankedAnnotation struct {
	Rank int `json:"rank"`
	Annotation
}
