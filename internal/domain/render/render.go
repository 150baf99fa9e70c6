// Package render injects a tier icon and a summary paragraph next to an
// article heading in an HTML document.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/okian/tiermark/internal/domain/tier"
)

// Default renderer configuration constants.
const (
	defaultAnchorID  = "main-heading"
	defaultSummaryID = "summary"
	defaultIconBase  = "/icons"
	iconClass        = "tier-icon"
)

// Overlay is everything injected into a page. It is always passed in
// explicitly; the renderer keeps no per-page state.
type Overlay struct {
	Tier    tier.Tier
	Summary string
}

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithAnchorID sets the id of the element the overlay attaches to.
func WithAnchorID(id string) Option {
	return func(r *Renderer) {
		if id != "" {
			r.anchorID = id
		}
	}
}

// WithSummaryID sets the id given to the injected summary paragraph.
func WithSummaryID(id string) Option {
	return func(r *Renderer) {
		if id != "" {
			r.summaryID = id
		}
	}
}

// WithIconBase sets the URL prefix icons are served from.
func WithIconBase(base string) Option {
	return func(r *Renderer) {
		if base != "" {
			r.iconBase = strings.TrimRight(base, "/")
		}
	}
}

// Renderer rewrites HTML documents. It is safe for concurrent use.
type Renderer struct {
	anchorID  string
	summaryID string
	iconBase  string
}

// New creates a Renderer with configuration options.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		anchorID:  defaultAnchorID,
		summaryID: defaultSummaryID,
		iconBase:  defaultIconBase,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IconURL returns the URL of the icon for t.
func (r *Renderer) IconURL(t tier.Tier) string {
	return r.iconBase + "/" + t.Icon()
}

// Inject places the tier icon right after the anchor element and the summary
// paragraph right before it. Running it twice on its own output replaces the
// earlier overlay instead of stacking a second one.
func (r *Renderer) Inject(doc []byte, o Overlay) ([]byte, error) {
	if !o.Tier.Valid() {
		return nil, fmt.Errorf("%w: %q", tier.ErrUnknownTier, o.Tier)
	}

	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	anchor := findByID(root, r.anchorID)
	if anchor == nil || anchor.Parent == nil {
		return nil, fmt.Errorf("%w: #%s", ErrAnchorNotFound, r.anchorID)
	}
	r.removeOverlay(anchor)

	parent := anchor.Parent
	parent.InsertBefore(r.iconNode(o.Tier), anchor.NextSibling)
	if s := strings.TrimSpace(o.Summary); s != "" {
		parent.InsertBefore(r.summaryNode(s), anchor)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) iconNode(t tier.Tier) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Img,
		Data:     "img",
		Attr: []html.Attribute{
			{Key: "class", Val: iconClass},
			{Key: "src", Val: r.IconURL(t)},
			{Key: "alt", Val: string(t)},
		},
	}
}

func (r *Renderer) summaryNode(text string) *html.Node {
	p := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.P,
		Data:     "p",
		Attr:     []html.Attribute{{Key: "id", Val: r.summaryID}},
	}
	p.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return p
}

// removeOverlay drops a previous icon and summary sitting beside anchor.
func (r *Renderer) removeOverlay(anchor *html.Node) {
	if prev := prevElement(anchor); prev != nil && attr(prev, "id") == r.summaryID {
		anchor.Parent.RemoveChild(prev)
	}
	if next := nextElement(anchor); next != nil && next.DataAtom == atom.Img && hasClass(next, iconClass) {
		anchor.Parent.RemoveChild(next)
	}
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func prevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
		if s.Type == html.TextNode && strings.TrimSpace(s.Data) != "" {
			return nil
		}
	}
	return nil
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
		if s.Type == html.TextNode && strings.TrimSpace(s.Data) != "" {
			return nil
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
