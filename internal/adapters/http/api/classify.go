package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/tiermark/internal/domain/model"
)

// ClassifyDependencies defines the interface for rating classification.
type ClassifyDependencies interface {
	Classify(ctx context.Context, rating float64) (model.Classification, error)
}

// ClassifyHandler handles classification requests.
type ClassifyHandler struct {
	deps ClassifyDependencies
}

// NewClassifyHandler creates a new classify handler.
func NewClassifyHandler(deps ClassifyDependencies) *ClassifyHandler {
	return &ClassifyHandler{deps: deps}
}

type classifyRequest struct {
	Rating *float64 `json:"rating"`
}

// HandleClassify handles POST /classify requests.
func (h *ClassifyHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	const op = "api.classify"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, op, http.MethodPost)
		return
	}
	var req classifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Rating == nil {
		writeErr(w, WrapKind(op, ErrBadRequest, errors.New("missing rating")))
		return
	}
	c, err := h.deps.Classify(r.Context(), *req.Rating)
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse(c))
}
