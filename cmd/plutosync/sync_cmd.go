package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/plutosync/internal/daemon"
	"github.com/ManuGH/plutosync/internal/jobs"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync [REGION...]",
		Short: "Run one synchronization pass and exit",
		Long: "Run one synchronization pass over the given regions, or the configured\n" +
			"ones when none are given. The exit status is 0 when the pass finished,\n" +
			"2 when it was aborted and 3 on error.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			regions := cfg.RegionCodes()
			if len(args) > 0 {
				regions = make([]string, 0, len(args))
				for _, a := range args {
					regions = append(regions, strings.ToUpper(strings.TrimSpace(a)))
				}
			}
			if len(regions) == 0 {
				return exitError{code: 1, msg: "no regions configured"}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			rt, err := daemon.Build(ctx, cfg, daemon.BuildOptions{
				Progress: func(p jobs.Progress) { printProgress(out, p) },
			})
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()

			for _, code := range regions {
				if _, err := rt.Regions.Lookup(code); err != nil {
					return exitError{code: 1, msg: err.Error()}
				}
			}
			if err := rt.EPG.WriteSources(cfg.RegionCodes()); err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "warning: unable to write EPG sources:", err)
			}

			res := rt.Updater.Run(ctx, regions)
			msg, _ := res.State.Message()
			for _, r := range res.Regions {
				if r.Skipped {
					_, _ = fmt.Fprintf(out, "%s: skipped\n", r.Region)
					continue
				}
				_, _ = fmt.Fprintf(out, "%s: %d channels, %d events\n", r.Region, r.Channels, r.Events)
			}
			if res.Error != "" {
				msg = msg + " " + res.Error
			}
			if code := res.State.ExitCode(); code != 0 {
				return exitError{code: code, msg: msg}
			}
			return nil
		},
	}
}

func printProgress(w io.Writer, p jobs.Progress) {
	if p.Status == "" {
		return
	}
	region := p.Region
	if region == "" {
		region = "--"
	}
	_, _ = fmt.Fprintf(w, "[%s] %3d%% %s\n", region, p.Percent, p.Status)
}
