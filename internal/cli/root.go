// Package cli holds the housingprep command tree.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"housingprep/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath     string
	EnvFile        string
	Verbose        bool
	MetricsBackend string
	PushgatewayURL string
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "housingprep",
		Short:         "Clean and enrich the housing dataset",
		Long:          "Loads the housing table, imputes medians, removes IQR outliers, derives ratio features, encodes ocean proximity and attaches the mean price per housing age.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "pipeline config file (JSON or YAML)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file loaded before reading the config")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewProbeCommand())

	return cmd
}

// loadConfig reads the config and prints every validation issue to w. It
// fails when any issue is an error.
func loadConfig(opts *RootOptions, w io.Writer) (config.Pipeline, error) {
	p, err := config.Load(config.LoadOptions{Path: opts.ConfigPath, EnvFile: opts.EnvFile})
	if err != nil {
		return config.Pipeline{}, err
	}
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintln(w, iss.String())
	}
	if config.HasErrors(issues) {
		return config.Pipeline{}, fmt.Errorf("configuration is invalid: %s", displayPath(opts.ConfigPath))
	}
	return p, nil
}

func displayPath(p string) string {
	if p == "" {
		return "(defaults and environment)"
	}
	return p
}
