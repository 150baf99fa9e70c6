package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/tiermark/internal/adapters/mq/scheduler"
	"github.com/okian/tiermark/internal/domain/render"
	"github.com/okian/tiermark/internal/domain/tier"
	"github.com/okian/tiermark/pkg/logger"
)

const outputFilePermission = 0o644

type annotateOptions struct {
	rating   float64
	summary  string
	delay    time.Duration
	iconBase string
	anchorID string
	output   string
}

func newAnnotateCommand() *cobra.Command {
	var o annotateOptions
	cmd := &cobra.Command{
		Use:   "annotate <file>",
		Short: "Inject the tier icon and summary into a local HTML page",
		Long: "Reads an HTML page (\"-\" for stdin), places the tier icon after the\n" +
			"article heading and the summary before it. With --delay the injection\n" +
			"is scheduled and can be aborted with Ctrl-C.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			out, err := annotate(cmd.Context(), doc, o)
			if err != nil {
				return err
			}
			if o.output != "" {
				return os.WriteFile(o.output, out, outputFilePermission)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	f := cmd.Flags()
	f.Float64Var(&o.rating, "rating", 0, "rigor rating in [-1, 1]")
	f.StringVar(&o.summary, "summary", "", "summary placed before the heading")
	f.DurationVar(&o.delay, "delay", 0, "wait before injecting")
	f.StringVar(&o.iconBase, "icon-base", "/icons", "base URL of tier icons")
	f.StringVar(&o.anchorID, "anchor", "main-heading", "id of the heading element")
	f.StringVarP(&o.output, "output", "o", "", "write to file instead of stdout")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

// annotate classifies o.rating and injects the overlay into doc, after
// o.delay when it is positive.
func annotate(ctx context.Context, doc []byte, o annotateOptions) ([]byte, error) {
	t, err := tier.Classify(o.rating)
	if err != nil {
		return nil, err
	}
	r := render.New(render.WithIconBase(o.iconBase), render.WithAnchorID(o.anchorID))
	overlay := render.Overlay{Tier: t, Summary: o.summary}
	if o.delay <= 0 {
		return r.Inject(doc, overlay)
	}

	sched := scheduler.New(scheduler.WithLogger(logger.Get().Named("annotate")))
	defer sched.Stop()

	var out []byte
	h := sched.Schedule(ctx, o.delay, func(context.Context) error {
		var err error
		out, err = r.Inject(doc, overlay)
		return err
	})
	logger.Get().Info(ctx, "injection scheduled",
		logger.String("id", h.ID()),
		logger.String("run_at", h.RunAt().Format(time.RFC3339)),
	)
	if err := h.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("annotation cancelled: %w", err)
		}
		return nil, err
	}
	return out, nil
}
