package main

import (
	"github.com/spf13/cobra"

	"dsymup/internal/config"
	"dsymup/internal/pipeline"
)

func newDumpCmd(cfg *config.Config, output *outputOptions) *cobra.Command {
	var (
		dest    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "dump <bundle>",
		Short: "Dump symbols from a dSYM bundle without uploading",
		Args:  requireBundleArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				enableVerbose()
			}
			req := pipeline.Request{BundlePath: args[0], DestDir: dest}
			opts := runnerOptions{verbose: verbose, echo: cmd.ErrOrStderr()}

			return withRunner(cfg, opts, func(runner *pipeline.Runner) error {
				report, err := runner.DumpOnly(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ok, err := writeStructured(output, report); ok || err != nil {
					return err
				}
				return writeReport(report)
			})
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", "", "existing directory for generated symbol files")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show debug output and dump commands")
	return cmd
}
