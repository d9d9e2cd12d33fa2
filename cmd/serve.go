package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/backstage/dashboard/internal/api"
	"example.com/backstage/dashboard/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long:  `Start the dashboard HTTP server and the periodic refresh of the simulation panels`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// a failed first load is not fatal: the panels reload on every request
	if err := a.dashboard.LoadAll(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial panel load failed")
	}

	server := api.NewServer(a.cfg.Server, a.dashboard, a.center, a.metrics, a.tracer)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	if a.cfg.Refresh.Enabled {
		refresher := worker.NewRefresher(a.cfg.Refresh.Interval, a.dashboard.Simulation, a.names, a.metrics)
		g.Go(func() error {
			return refresher.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Dashboard error")
		return err
	}

	log.Info().Msg("Dashboard shut down gracefully")
	return nil
}
