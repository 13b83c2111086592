package main

import (
	"github.com/spf13/cobra"

	"dsymup/internal/config"
)

type regionEntry struct {
	Code    string `json:"code" yaml:"code"`
	Domain  string `json:"domain" yaml:"domain"`
	Default bool   `json:"default,omitempty" yaml:"default,omitempty"`
}

func newRegionsCmd(cfg *config.Config, output *outputOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List known server regions",
		Args:  requireExactlyArgs(0, "regions takes no arguments"),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := regionTable(cfg)
			entries := make([]regionEntry, 0, len(table.Codes()))
			for _, code := range table.Codes() {
				domain, err := table.Resolve(code)
				if err != nil {
					return err
				}
				entries = append(entries, regionEntry{Code: code, Domain: domain, Default: code == table.Default()})
			}

			if ok, err := writeStructured(output, entries); ok || err != nil {
				return err
			}
			for _, e := range entries {
				marker := " "
				if e.Default {
					marker = "*"
				}
				if err := writePlain("%s %-4s %s\n", marker, e.Code, e.Domain); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
