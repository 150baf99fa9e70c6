package model

import (
	"time"

	"github.com/okian/tiermark/internal/domain/tier"
)

// Classification is the result of classifying a single rating.
type Classification struct {
	Rating     float64   `json:"rating"`
	Normalized float64   `json:"normalized"`
	Tier       tier.Tier `json:"tier"`
	Icon       string    `json:"icon"`
}

// RenderRequest describes one overlay render. The document comes from HTML
// or, when HTML is empty, from fetching URL. A nil Rating or Summary is taken
// from the stored annotation for URL.
type RenderRequest struct {
	HTML    string
	URL     string
	Rating  *float64
	Summary *string
}

// RenderStatus reports on a scheduled render.
type RenderStatus struct {
	ID    string    `json:"id"`
	State string    `json:"state"`
	RunAt time.Time `json:"run_at"`
	Tier  tier.Tier `json:"tier,omitempty"`
	HTML  string    `json:"html,omitempty"`
	Error string    `json:"error,omitempty"`
}
