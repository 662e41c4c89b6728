package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/plutosync/internal/config"
	"github.com/ManuGH/plutosync/internal/daemon"
	xglog "github.com/ManuGH/plutosync/internal/log"
)

func newDaemonCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler and the control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, cfg, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			logger := xglog.WithComponent("daemon")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := daemon.Build(ctx, cfg, daemon.BuildOptions{Serve: true})
			if err != nil {
				return err
			}
			app, err := daemon.NewApp(config.NewConfigHolder(cfg, loader), rt)
			if err != nil {
				_ = rt.Close(context.WithoutCancel(ctx))
				return err
			}

			ev := logger.Info().
				Str(xglog.FieldEvent, "daemon.start").
				Str("version", version).
				Str("commit", commit).
				Strs("regions", cfg.RegionCodes()).
				Int("update_interval_h", cfg.UpdateInterval).
				Str("listen", cfg.API.Listen)
			if cfg.OpenWebIF.BaseURL != "" {
				ev = ev.Str("openwebif", maskURL(cfg.OpenWebIF.BaseURL))
			}
			ev.Msg("starting plutosync daemon")

			return app.Run(ctx)
		},
	}
}
