package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/internal/domain/tier"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]model.RankedAnnotation, error)
	ByTier(ctx context.Context, t tier.Tier) ([]model.Annotation, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N[&tier=T] requests.
// With a tier, only that tier is listed; ranks stay relative to the list.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		methodNotAllowed(w, op, http.MethodGet)
		return
	}
	q := r.URL.Query()
	n, err := strconv.Atoi(q.Get("limit"))
	if err != nil || n < 1 {
		writeErr(w, NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded",
			WrapKind(op, ErrBadRequest, fmt.Errorf("limit %d exceeds %d", n, h.maxLimit)))
		return
	}

	if name := q.Get("tier"); name != "" {
		t, err := tier.Parse(name)
		if err != nil {
			writeErr(w, Wrap(op, err))
			return
		}
		list, err := h.deps.ByTier(r.Context(), t)
		if err != nil {
			writeErr(w, Wrap(op, err))
			return
		}
		if len(list) > n {
			list = list[:n]
		}
		entries := make([]model.RankedAnnotation, len(list))
		rank := 0
		for i, a := range list {
			if i == 0 || a.Rating != list[i-1].Rating {
				rank++
			}
			entries[i] = model.RankedAnnotation{Rank: rank, Annotation: a}
		}
		writeJSON(w, http.StatusOK, leaderboardResponse{Tier: t, Entries: entries})
		return
	}

	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Entries: entries})
}
