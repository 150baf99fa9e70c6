package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/okian/tiermark/internal/domain/tier"
)

var errNoRatings = errors.New("requires at least one rating")

func newClassifyCommand() *cobra.Command {
	var (
		clamp   bool
		ratings []string
	)
	cmd := &cobra.Command{
		Use:   "classify <rating>...",
		Short: "Print the tier and icon for each rating",
		Long: `Print the tier and icon for each rating in [-1, 1].

Negative ratings are taken as ratings, not flags:

  tierctl classify -1 -0.8 0.5`,
		// pflag reads "-1" as a shorthand, so flags are split out by hand.
		DisableFlagParsing: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if ratings, err = parseRatingFlags(cmd, args); err != nil {
				return err
			}
			return cmd.Root().PersistentPreRunE(cmd, args)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if help, _ := cmd.Flags().GetBool("help"); help {
				return cmd.Help()
			}
			if len(ratings) == 0 {
				return errNoRatings
			}
			for _, arg := range ratings {
				line, err := classifyLine(arg, clamp)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&clamp, "clamp", false, "clamp out-of-range ratings instead of failing")
	return cmd
}

// parseRatingFlags parses the flags in args, local and inherited, and
// returns the remaining ratings in order.
func parseRatingFlags(cmd *cobra.Command, args []string) ([]string, error) {
	cmd.InheritedFlags() // merges persistent flags into cmd.Flags()
	fs := cmd.Flags()
	flags, ratings := splitRatingArgs(fs, args)
	if err := fs.Parse(flags); err != nil {
		return nil, err
	}
	return ratings, nil
}

// splitRatingArgs separates flags from ratings. A token that parses as a
// number is a rating; everything after "--" is too.
func splitRatingArgs(fs *pflag.FlagSet, args []string) (flags, ratings []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return flags, append(ratings, args[i+1:]...)
		case a == "-" || !strings.HasPrefix(a, "-") || isNumber(a):
			ratings = append(ratings, a)
		default:
			flags = append(flags, a)
			if takesValue(fs, a) && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		}
	}
	return flags, ratings
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// takesValue reports whether arg names a flag whose value is the next token.
func takesValue(fs *pflag.FlagSet, arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	var f *pflag.Flag
	if name, ok := strings.CutPrefix(arg, "--"); ok {
		f = fs.Lookup(name)
	} else if len(arg) == 2 {
		f = fs.ShorthandLookup(arg[1:])
	}
	return f != nil && f.NoOptDefVal == ""
}

// classifyLine parses a rating and formats "rating<TAB>tier<TAB>icon".
func classifyLine(s string, clamp bool) (string, error) {
	r, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("parse rating %q: %w", s, err)
	}
	var t tier.Tier
	if clamp {
		t = tier.ClassifyClamped(r)
	} else if t, err = tier.Classify(r); err != nil {
		return "", err
	}
	return s + "\t" + t.String() + "\t" + t.Icon(), nil
}
