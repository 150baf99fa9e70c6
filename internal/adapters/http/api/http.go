// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/internal/domain/tier"
)

// Default server configuration constants.
const (
	defaultMaxLeaderboardLimit = 100
	maxBodyBytes               = 8 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ClassifyDependencies
	ReportDependencies
	AnnotationDependencies
	LeaderboardDependencies
	RenderDependencies
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxLeaderboardLimit caps GET /leaderboard?limit.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	maxLimit int

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	classifyHandler    *ClassifyHandler
	reportsHandler     *ReportsHandler
	annotationsHandler *AnnotationsHandler
	leaderboardHandler *LeaderboardHandler
	renderHandler      *RenderHandler
	iconsHandler       *IconsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{maxLimit: defaultMaxLeaderboardLimit}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.classifyHandler = NewClassifyHandler(deps)
	s.reportsHandler = NewReportsHandler(deps)
	s.annotationsHandler = NewAnnotationsHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLimit)
	s.renderHandler = NewRenderHandler(deps)
	s.iconsHandler = NewIconsHandler()
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/classify", MetricsMiddleware(s.classifyHandler.HandleClassify, "classify"))
	mux.HandleFunc("/reports", MetricsMiddleware(s.reportsHandler.HandlePostReport, "reports"))
	mux.HandleFunc("/annotations", MetricsMiddleware(s.annotationsHandler.HandleGetAnnotation, "annotations"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/render", MetricsMiddleware(s.renderHandler.HandleRender, "render"))
	mux.HandleFunc("/renders", MetricsMiddleware(s.renderHandler.HandleScheduleRender, "renders"))
	mux.HandleFunc("/renders/", MetricsMiddleware(s.renderHandler.HandleRenderByID, "renders_id"))
	mux.HandleFunc("/icons/", MetricsMiddleware(s.iconsHandler.HandleIcon, "icons"))
}

// renderRequest mirrors the OpenAPI schema for POST /render and /renders.
type renderRequest struct {
	HTML    string   `json:"html"`
	URL     string   `json:"url"`
	Rating  *float64 `json:"rating"`
	Summary *string  `json:"summary"`
	DelayMS *int     `json:"delay_ms"`
}

func (r renderRequest) validate() error {
	switch {
	case r.HTML == "" && r.URL == "":
		return errors.New("one of html or url is required")
	case r.DelayMS != nil && *r.DelayMS < 0:
		return errors.New("delay_ms must not be negative")
	}
	return nil
}

func (r renderRequest) toModel() model.RenderRequest {
	return model.RenderRequest{HTML: r.HTML, URL: r.URL, Rating: r.Rating, Summary: r.Summary}
}

// delay returns the requested delay, or -1 for the service default.
func (r renderRequest) delay() time.Duration {
	if r.DelayMS == nil {
		return -1
	}
	return time.Duration(*r.DelayMS) * time.Millisecond
}

type classifyResponse = model.Classification

type leaderboardResponse struct {
	Tier    tier.Tier                `json:"tier,omitempty"`
	Entries []model.RankedAnnotation `json:"entries"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// decodeJSON reads a single JSON object from r into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeErr picks status and code from err.
func writeErr(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

func methodNotAllowed(w http.ResponseWriter, op string, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeErr(w, NewKind(op, ErrMethodNotAllowed))
}
