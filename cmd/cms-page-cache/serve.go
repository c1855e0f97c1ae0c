package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/cms-page-cache/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var warm bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pages and cache administration over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go a.agg.Caches().Registry().RunJanitor(ctx, a.cfg.Cache.SweepInterval)

			if warm {
				go func() {
					results := a.agg.Warm(ctx, nil)
					a.logger.Info().Int("loads", len(results)).Msg("Startup warm-up finished")
				}()
			}

			srv, err := server.New(a.cfg.Server.Address, server.NewHandler(a.agg, a.normalizer), a.cfg.Server.ShutdownTimeout)
			if err != nil {
				return err
			}
			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Info().Msg("Server stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&warm, "warm", false, "preload every page in every supported locale at startup")
	return cmd
}
