package cli

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"housingprep/internal/probe"
)

// ProbeOptions holds flags for the probe command.
type ProbeOptions struct {
	MaxBytes  int
	Delimiter string
	Suggest   bool
	HeaderMap map[string]string
}

// NewProbeCommand creates the probe command.
func NewProbeCommand() *cobra.Command {
	opts := &ProbeOptions{}

	cmd := &cobra.Command{
		Use:   "probe <path-or-url>",
		Short: "Sample an input file and check it against the housing schema",
		Long: `Reads the first bytes of a delimited file, sniffs the delimiter, normalises
the header and infers a type per column. With --suggest it prints a pipeline
config for the file instead of the summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var delim rune
			switch opts.Delimiter {
			case "":
			case `\t`, "tab":
				delim = '\t'
			default:
				delim, _ = utf8.DecodeRuneInString(opts.Delimiter)
			}

			res, err := probe.Probe(cmd.Context(), probe.Options{
				Path:      args[0],
				MaxBytes:  opts.MaxBytes,
				Delimiter: delim,
				HeaderMap: opts.HeaderMap,
			})
			if err != nil {
				return err
			}

			out := res.Summary()
			if opts.Suggest {
				if out, err = res.SuggestedYAML(); err != nil {
					return err
				}
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}
			if !opts.Suggest && !res.Ready() {
				return fmt.Errorf("input does not match the housing schema")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.MaxBytes, "max-bytes", probe.DefaultMaxBytes, "bytes to sample from the start of the input")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", "", "field delimiter (default: sniffed)")
	cmd.Flags().BoolVar(&opts.Suggest, "suggest", false, "print a suggested pipeline config (YAML)")
	cmd.Flags().StringToStringVar(&opts.HeaderMap, "header-map", nil, "header renames, e.g. Income=median_income")
	return cmd
}
