package main

import (
	"github.com/spf13/cobra"

	"dsymup/internal/config"
	"dsymup/internal/models"
	"dsymup/internal/pipeline"
)

func newUploadCmd(cfg *config.Config, output *outputOptions) *cobra.Command {
	var (
		dest    string
		appID   string
		appKey  string
		region  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "upload <bundle>",
		Short: "Dump symbols from a dSYM bundle and upload them",
		Args:  requireBundleArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				enableVerbose()
			}
			req := pipeline.Request{
				BundlePath:  args[0],
				DestDir:     dest,
				Region:      region,
				Credentials: models.Credentials{AppID: appID, AppKey: appKey},
			}
			opts := runnerOptions{verbose: verbose, echo: cmd.ErrOrStderr(), history: true}

			return withRunner(cfg, opts, func(runner *pipeline.Runner) error {
				report, err := runner.Run(cmd.Context(), req)
				if err != nil {
					if report.Result != nil {
						_, _ = writeStructured(output, report)
					}
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
	cmd.Flags().StringVar(&appID, "id", cfg.AppID, "application id")
	cmd.Flags().StringVar(&appKey, "key", cfg.AppKey, "application key")
	cmd.Flags().StringVarP(&region, "region", "r", cfg.Region, "server region code")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show debug output and dump commands")
	return cmd
}
