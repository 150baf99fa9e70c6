package api

import (
	"context"
	"net/http"

	"github.com/okian/tiermark/internal/domain/model"
)

// AnnotationDependencies defines the interface for annotation lookups.
type AnnotationDependencies interface {
	Annotation(ctx context.Context, url string) (model.Annotation, error)
}

// AnnotationsHandler handles annotation lookups.
type AnnotationsHandler struct {
	deps AnnotationDependencies
}

// NewAnnotationsHandler creates a new annotations handler.
func NewAnnotationsHandler(deps AnnotationDependencies) *AnnotationsHandler {
	return &AnnotationsHandler{deps: deps}
}

// HandleGetAnnotation handles GET /annotations?url= requests.
func (h *AnnotationsHandler) HandleGetAnnotation(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_annotation"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, op, http.MethodGet)
		return
	}
	url := r.URL.Query().Get("url")
	if url == "" {
		writeErr(w, NewKind(op, ErrBadRequest))
		return
	}
	a, err := h.deps.Annotation(r.Context(), url)
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}
