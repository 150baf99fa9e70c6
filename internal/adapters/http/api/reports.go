package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/tiermark/internal/domain/model"
)

// ReportDependencies defines the interface for report ingestion.
type ReportDependencies interface {
	// SubmitReport queues a report. It fails with a queue-full error on
	// backpressure.
	SubmitReport(ctx context.Context, r model.Report) (string, error)
}

// ReportsHandler handles report submissions.
type ReportsHandler struct {
	deps ReportDependencies
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps ReportDependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

// reportRequest mirrors the OpenAPI schema for POST /reports.
type reportRequest struct {
	URL          string       `json:"url"`
	Title        string       `json:"title"`
	Text         string       `json:"text"`
	Summary      string       `json:"summary"`
	Subjectivity *float64     `json:"subjectivity"`
	Polarity     *float64     `json:"polarity"`
	Evidence     *float64     `json:"evidence"`
	Journalist   string       `json:"journalist"`
	Related      []model.Link `json:"related_articles"`
}

func (r reportRequest) validate() error {
	switch {
	case strings.TrimSpace(r.URL) == "":
		return errors.New("missing url")
	case r.Subjectivity == nil:
		return errors.New("missing subjectivity")
	case r.Polarity == nil:
		return errors.New("missing polarity")
	case r.Evidence == nil:
		return errors.New("missing evidence")
	}
	return nil
}

type ackResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HandlePostReport handles POST /reports requests.
func (h *ReportsHandler) HandlePostReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_report"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, op, http.MethodPost)
		return
	}
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeErr(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	id, err := h.deps.SubmitReport(r.Context(), model.Report{
		URL:          strings.TrimSpace(req.URL),
		Title:        req.Title,
		Text:         req.Text,
		Summary:      req.Summary,
		Subjectivity: *req.Subjectivity,
		Polarity:     *req.Polarity,
		Evidence:     *req.Evidence,
		Journalist:   strings.TrimSpace(req.Journalist),
		Related:      req.Related,
	})
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{ID: id, Status: "accepted"})
}
