package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/plutosync/internal/bouquet"
	"github.com/ManuGH/plutosync/internal/daemon"
)

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-bouquet REGION...",
		Short: "Unregister the bouquets of regions and delete their EPG files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rt, err := daemon.Build(cmd.Context(), cfg, daemon.BuildOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.WithoutCancel(cmd.Context())) }()

			regions := make([]string, 0, len(args))
			for _, a := range args {
				regions = append(regions, strings.ToUpper(strings.TrimSpace(a)))
			}
			if err := rt.Updater.RemoveRegions(cmd.Context(), regions); err != nil {
				return err
			}
			for _, code := range regions {
				if err := rt.EPG.Remove(code); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "unregistered %s\n", bouquet.FileName(code))
			}
			return nil
		},
	}
}
