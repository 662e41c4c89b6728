package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ManuGH/plutosync/internal/region"
)

func newRegionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the known regions; configured ones are marked with *",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			table, err := region.Load(cfg.RegionFile)
			if err != nil {
				return err
			}
			configured := cfg.RegionCodes()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "\tCODE\tNAME\tTIDS")
			for _, r := range table.All() {
				mark := ""
				if slices.Contains(configured, r.Code) {
					mark = "*"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, r.Code, r.Name, r.TIDs)
			}
			_, _ = fmt.Fprintf(tw, "\nregion data version %s\n", table.Version())
			return tw.Flush()
		},
	}
}
