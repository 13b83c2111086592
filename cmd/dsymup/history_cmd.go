package main

import (
	"errors"

	"github.com/spf13/cobra"

	"dsymup/internal/config"
	"dsymup/internal/history"
)

func newHistoryCmd(cfg *config.Config, output *outputOptions) *cobra.Command {
	var (
		limit   int
		buildID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent uploads",
		Args:  requireExactlyArgs(0, "history takes no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.History.Enabled {
				return errors.New("upload history is disabled (history.enabled = false)")
			}
			st, err := history.Open(cfg.History.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if buildID != "" {
				ids, err := st.FindByBuildID(cmd.Context(), buildID)
				if err != nil {
					return err
				}
				if ok, err := writeStructured(output, ids); ok || err != nil {
					return err
				}
				for _, id := range ids {
					if err := writePlain("%s\n", id); err != nil {
						return err
					}
				}
				return nil
			}

			runs, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if ok, err := writeStructured(output, runs); ok || err != nil {
				return err
			}
			return writeRunList(runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&buildID, "build-id", "", "list run ids that sent symbols for this build id")
	return cmd
}
