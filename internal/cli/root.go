// Package cli implements the tierctl command line tool.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/tiermark/pkg/logger"
)

// Default CLI configuration constants.
const (
	defaultServer   = "http://localhost:9080"
	defaultLogLevel = "warn"
)

// NewRootCommand builds the tierctl command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)
	root := &cobra.Command{
		Use:           "tierctl",
		Short:         "Classify article ratings and annotate pages with tier icons",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(errOut), logger.WithFormat(logFormat)); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newClassifyCommand(),
		newAnnotateCommand(),
		newSubmitCommand(),
		newBatchCommand(),
		newLoadtestCommand(),
	)
	return root
}

// Execute runs tierctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
