package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dsymup/internal/config"
	"dsymup/internal/format"
)

type outputOptions struct {
	json bool
	yaml bool
}

// formatter returns the structured formatter selected by flags, or nil for plain text.
func (o *outputOptions) formatter() format.Formatter {
	switch {
	case o.json:
		return format.JSONFormatter{}
	case o.yaml:
		return format.YAMLFormatter{}
	default:
		return nil
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		output   outputOptions
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "dsymup",
		Short:         "Extract Breakpad symbols from dSYM bundles and upload them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if output.json && output.yaml {
				return errors.New("--json and --yaml are mutually exclusive")
			}
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&output.json, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&output.yaml, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newUploadCmd(cfg, &output),
		newDumpCmd(cfg, &output),
		newSlicesCmd(cfg, &output),
		newRegionsCmd(cfg, &output),
		newHistoryCmd(cfg, &output),
		newConfigCmd(cfg),
	)

	return cmd
}
