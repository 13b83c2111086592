package main

import (
	"github.com/spf13/cobra"

	"dsymup/internal/config"
	"dsymup/internal/pipeline"
)

func newSlicesCmd(cfg *config.Config, output *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "slices <bundle>",
		Short: "List the architecture slices in a dSYM bundle",
		Args:  requireBundleArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(cfg, runnerOptions{}, func(runner *pipeline.Runner) error {
				slices, err := runner.Slices(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ok, err := writeStructured(output, slices); ok || err != nil {
					return err
				}
				return writeSliceList(slices)
			})
		},
	}
}
