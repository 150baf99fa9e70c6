// Package fetch downloads article pages and extracts their heading and body.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/pkg/logger"
	"github.com/okian/tiermark/pkg/metrics"
)

// Markers for supported news pages. Class names carry a generated prefix,
// so only their suffix or infix is matched.
const (
	headingID          = "main-heading"
	contributorSuffix  = "TextContributorName"
	promoLinkInfix     = "PromoLink"
	maxRelatedArticles = 10
)

// Page is a fetched article.
type Page struct {
	URL        string
	Title      string
	Text       string
	Journalist string
	Related    []model.Link
	HTML       []byte
}

// Fetcher downloads article pages.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	maxBytes  int64
	userAgent string
	logger    logger.Logger
}

// New creates a Fetcher with configuration options.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    http.DefaultClient,
		timeout:   defaultTimeout,
		maxBytes:  defaultMaxBytes,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Get().Named("fetch")
	}
	return f
}

// Fetch downloads rawURL and parses it into a Page. A page without body text
// is returned together with ErrEmptyArticle.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		metrics.RecordFetch("invalid_url")
		return Page{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	start := time.Now()
	defer func() {
		metrics.RecordFetchLatency(float64(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordFetch("error")
		return Page{}, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordFetch("status")
		return Page{}, fmt.Errorf("%w: %s returned %d", ErrStatus, rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		metrics.RecordFetch("error")
		return Page{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	if int64(len(body)) > f.maxBytes {
		metrics.RecordFetch("too_large")
		return Page{}, fmt.Errorf("%w: more than %s bytes", ErrTooLarge, strconv.FormatInt(f.maxBytes, 10))
	}

	page, err := Parse(rawURL, body)
	switch {
	case errors.Is(err, ErrEmptyArticle):
		// the document is still usable for rendering
		metrics.RecordFetch("empty")
		return page, err
	case err != nil:
		metrics.RecordFetch("parse")
		return Page{}, err
	}
	metrics.RecordFetch("ok")
	f.logger.Debug(ctx, "article fetched",
		logger.String("url", rawURL),
		logger.Int("bytes", len(body)),
	)
	return page, nil
}

// Parse extracts the heading, byline, related links and body text from an
// article document. The heading is h1#main-heading, falling back to <title>;
// the body is every paragraph under <main>, joined by single spaces.
func Parse(rawURL string, doc []byte) (Page, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	page := Page{URL: rawURL, HTML: doc}
	if h := find(root, func(n *html.Node) bool {
		return n.DataAtom == atom.H1 && attr(n, "id") == headingID
	}); h != nil {
		page.Title = textOf(h)
	}
	if page.Title == "" {
		if t := find(root, func(n *html.Node) bool { return n.DataAtom == atom.Title }); t != nil {
			page.Title = textOf(t)
		}
	}

	if s := find(root, func(n *html.Node) bool {
		return n.DataAtom == atom.Span && hasClass(n, func(c string) bool {
			return strings.HasSuffix(c, contributorSuffix)
		})
	}); s != nil {
		page.Journalist = textOf(s)
	}
	page.Related = relatedLinks(root, rawURL)

	var paragraphs []string
	walk(root, func(n *html.Node) {
		if n.DataAtom == atom.P && hasAncestor(n, atom.Main) {
			if t := textOf(n); t != "" {
				paragraphs = append(paragraphs, t)
			}
		}
	})
	page.Text = strings.Join(paragraphs, " ")
	if page.Text == "" {
		return page, ErrEmptyArticle
	}
	return page, nil
}

// relatedLinks collects promo links, resolved against base and deduplicated.
// Links back to base itself are skipped.
func relatedLinks(root *html.Node, base string) []model.Link {
	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = &url.URL{}
	}
	seen := map[string]bool{baseURL.String(): true}
	var links []model.Link
	walk(root, func(n *html.Node) {
		if len(links) == maxRelatedArticles || n.DataAtom != atom.A {
			return
		}
		if !hasClass(n, func(c string) bool { return strings.Contains(c, promoLinkInfix) }) {
			return
		}
		title, href := textOf(n), attr(n, "href")
		if title == "" || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		link := baseURL.ResolveReference(ref).String()
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, model.Link{Title: title, URL: link})
	})
	return links
}

func hasClass(n *html.Node, match func(string) bool) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if match(c) {
			return true
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasAncestor(n *html.Node, a atom.Atom) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == a {
			return true
		}
	}
	return false
}

// textOf returns the whitespace-collapsed text content of n.
func textOf(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
