package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/sentinel/core/logger"
	"github.com/dmitrymomot/sentinel/core/server"
	"github.com/dmitrymomot/sentinel/internal/bootstrap"
)

func newServeCommand() *cobra.Command {
	var addr string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo application behind the security middleware",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := bootstrap.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := bootstrap.Logger(cfg)

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.Error("failed to close backends", logger.Error(err))
				}
			}()

			srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(srv.Run(gctx, newRouter(app)))
			for _, job := range app.Jobs(gctx) {
				g.Go(job)
			}
			return g.Wait()
		},
	}

	c.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides SERVER_ADDR)")
	return c
}
