package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/okian/tiermark/internal/domain/model"
)

// RenderDependencies defines the interface for overlay rendering.
type RenderDependencies interface {
	Render(ctx context.Context, req model.RenderRequest) ([]byte, error)
	ScheduleRender(ctx context.Context, req model.RenderRequest, delay time.Duration) (model.RenderStatus, error)
	RenderStatus(ctx context.Context, id string) (model.RenderStatus, error)
	CancelRender(ctx context.Context, id string) (bool, error)
}

// RenderHandler handles immediate and scheduled renders.
type RenderHandler struct {
	deps RenderDependencies
}

// NewRenderHandler creates a new render handler.
func NewRenderHandler(deps RenderDependencies) *RenderHandler {
	return &RenderHandler{deps: deps}
}

type cancelResponse struct {
	ID        string `json:"id"`
	Cancelled bool   `json:"cancelled"`
}

func (h *RenderHandler) decode(w http.ResponseWriter, r *http.Request, op string) (renderRequest, bool) {
	var req renderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, WrapKind(op, ErrBadRequest, err))
		return req, false
	}
	if err := req.validate(); err != nil {
		writeErr(w, WrapKind(op, ErrBadRequest, err))
		return req, false
	}
	return req, true
}

// HandleRender handles POST /render requests and answers with the page.
func (h *RenderHandler) HandleRender(w http.ResponseWriter, r *http.Request) {
	const op = "api.render"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, op, http.MethodPost)
		return
	}
	req, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	out, err := h.deps.Render(r.Context(), req.toModel())
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// HandleScheduleRender handles POST /renders requests.
func (h *RenderHandler) HandleScheduleRender(w http.ResponseWriter, r *http.Request) {
	const op = "api.schedule_render"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, op, http.MethodPost)
		return
	}
	req, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	st, err := h.deps.ScheduleRender(r.Context(), req.toModel(), req.delay())
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/renders/"+st.ID)
	writeJSON(w, http.StatusAccepted, st)
}

// HandleRenderByID handles GET and DELETE /renders/{id} requests.
func (h *RenderHandler) HandleRenderByID(w http.ResponseWriter, r *http.Request) {
	const op = "api.render_by_id"
	id := strings.TrimPrefix(r.URL.Path, "/renders/")
	if id == "" || strings.Contains(id, "/") {
		writeErr(w, NewKind(op, ErrBadRequest))
		return
	}

	switch r.Method {
	case http.MethodGet:
		st, err := h.deps.RenderStatus(r.Context(), id)
		if err != nil {
			writeErr(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodDelete:
		cancelled, err := h.deps.CancelRender(r.Context(), id)
		if err != nil {
			writeErr(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, cancelResponse{ID: id, Cancelled: cancelled})
	default:
		methodNotAllowed(w, op, http.MethodGet, http.MethodDelete)
	}
}
