package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/tiermark/internal/adapters/fetch"
	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/pkg/logger"
)

// reportBody matches POST /reports.
type reportBody struct {
	URL          string       `json:"url"`
	Title        string       `json:"title,omitempty"`
	Text         string       `json:"text,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	Subjectivity float64      `json:"subjectivity"`
	Polarity     float64      `json:"polarity"`
	Evidence     float64      `json:"evidence"`
	Journalist   string       `json:"journalist,omitempty"`
	Related      []model.Link `json:"related_articles,omitempty"`
}

type ackBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func newSubmitCommand() *cobra.Command {
	var (
		server    string
		timeout   time.Duration
		fetchPage bool
		body      reportBody
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an analysis report to a tiermark server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if body.URL == "" {
				return errors.New("--url is required")
			}
			if fetchPage {
				if err := fillFromPage(cmd.Context(), &body, timeout); err != nil {
					return err
				}
			}
			var ack ackBody
			if err := newClient(server, timeout).postJSON(cmd.Context(), "/reports", body, &ack); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", ack.ID, ack.Status)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&server, "server", defaultServer, "tiermark server base URL")
	f.DurationVar(&timeout, "timeout", defaultTimeout, "request timeout")
	f.StringVar(&body.URL, "url", "", "article URL")
	f.StringVar(&body.Title, "title", "", "article heading")
	f.StringVar(&body.Text, "text", "", "article body, summarized when --summary is empty")
	f.StringVar(&body.Summary, "summary", "", "summary shown next to the heading")
	f.StringVar(&body.Journalist, "journalist", "", "article byline")
	f.BoolVar(&fetchPage, "fetch", false, "fetch the article and fill in title, text, byline and related articles")
	f.Float64Var(&body.Subjectivity, "subjectivity", 0, "mean subjectivity in [0, 1]")
	f.Float64Var(&body.Polarity, "polarity", 0, "polarity in [-1, 1]")
	f.Float64Var(&body.Evidence, "evidence", 0, "evidence score in [-1, 1]")
	for _, name := range []string{"subjectivity", "polarity", "evidence"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// fillFromPage fetches body.URL and fills fields the flags left empty.
func fillFromPage(ctx context.Context, body *reportBody, timeout time.Duration) error {
	f := fetch.New(fetch.WithTimeout(timeout), fetch.WithLogger(logger.Get().Named("fetch")))
	page, err := f.Fetch(ctx, body.URL)
	if err != nil && !errors.Is(err, fetch.ErrEmptyArticle) {
		return err
	}
	if body.Title == "" {
		body.Title = page.Title
	}
	if body.Text == "" {
		body.Text = page.Text
	}
	if body.Journalist == "" {
		body.Journalist = page.Journalist
	}
	if len(body.Related) == 0 {
		body.Related = page.Related
	}
	return nil
}
