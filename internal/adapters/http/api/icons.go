package api

import (
	"embed"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/tiermark/internal/domain/tier"
)

//go:embed icons/*.svg
var iconFS embed.FS

// IconsHandler serves the tier icons.
type IconsHandler struct{}

// NewIconsHandler creates a new icons handler.
func NewIconsHandler() *IconsHandler {
	return &IconsHandler{}
}

// Icon returns the embedded SVG for t.
func Icon(t tier.Tier) ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", tier.ErrUnknownTier, t)
	}
	b, err := iconFS.ReadFile("icons/" + t.Icon())
	if err != nil {
		return nil, fmt.Errorf("read icon %s: %w", t, err)
	}
	return b, nil
}

// HandleIcon handles GET /icons/{tier}.svg requests.
func (h *IconsHandler) HandleIcon(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_icon"
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, op, http.MethodGet, http.MethodHead)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/icons/")
	if !strings.HasSuffix(name, ".svg") {
		writeErr(w, NewKind(op, ErrNotFound))
		return
	}
	t, err := tier.Parse(name)
	if err != nil {
		writeErr(w, NewKind(op, ErrNotFound))
		return
	}
	b, err := Icon(t)
	if err != nil {
		writeErr(w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(b)
	}
}
