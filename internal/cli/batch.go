package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type batchResult struct {
	line string
	err  error
}

func newBatchCommand() *cobra.Command {
	var (
		workers int
		clamp   bool
	)
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Classify a newline-separated list of ratings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			results, err := classifyBatch(cmd.Context(), ratingLines(data), workers, clamp)
			if err != nil {
				return err
			}
			failed := 0
			for i, r := range results {
				if r.err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %v\n", i+1, r.err)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), r.line)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d ratings invalid", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "concurrent classifiers")
	cmd.Flags().BoolVar(&clamp, "clamp", false, "clamp out-of-range ratings instead of failing")
	return cmd
}

// ratingLines splits data into trimmed lines, dropping blanks and # comments.
func ratingLines(data []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// classifyBatch classifies lines concurrently; results keep input order.
func classifyBatch(ctx context.Context, lines []string, workers int, clamp bool) ([]batchResult, error) {
	results := make([]batchResult, len(lines))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := classifyLine(line, clamp)
			results[i] = batchResult{line: out, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
