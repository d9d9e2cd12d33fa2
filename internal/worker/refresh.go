package worker

import (
	"context"
	"time"

	"example.com/backstage/dashboard/internal/metrics"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Simulation is re-synchronised from the backend on every run
type Simulation interface {
	Init(ctx context.Context) error
}

// Names is the shared product catalogue refreshed on every run
type Names interface {
	Refresh(ctx context.Context) error
}

// Refresher keeps the long-lived panels in step with changes made outside the
// dashboard, e.g. another operator advancing the simulation
type Refresher struct {
	interval   time.Duration
	simulation Simulation
	names      Names
	metrics    *metrics.Metrics
}

// NewRefresher creates a refresher running every interval. metricsCollector may be nil.
func NewRefresher(interval time.Duration, simulation Simulation, names Names, metricsCollector *metrics.Metrics) *Refresher {
	return &Refresher{
		interval:   interval,
		simulation: simulation,
		names:      names,
		metrics:    metricsCollector,
	}
}

// RunOnce refreshes names and simulation state together
func (r *Refresher) RunOnce(ctx context.Context) error {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(r.names.Refresh(gctx), "refresh product names")
	})
	g.Go(func() error {
		return errors.Wrap(r.simulation.Init(gctx), "refresh simulation")
	})
	err := g.Wait()

	if r.metrics != nil {
		r.metrics.RecordTimer("worker.refresh", time.Since(start))
		if err != nil {
			r.metrics.RecordError("worker.refresh")
		} else {
			r.metrics.RecordSuccess("worker.refresh")
		}
	}
	return err
}

// Run schedules RunOnce until ctx is done. A run that is still going when the
// next one is due delays it instead of overlapping.
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return errors.Errorf("refresh interval must be positive, got %s", r.interval)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "failed to create scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			if err := r.RunOnce(ctx); err != nil {
				log.Warn().Err(err).Msg("periodic refresh failed")
				return
			}
			log.Debug().Msg("periodic refresh done")
		}),
		gocron.WithName("dashboard-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return errors.Wrap(err, "failed to schedule refresh")
	}

	log.Info().Dur("interval", r.interval).Msg("Starting periodic refresh")
	scheduler.Start()

	<-ctx.Done()

	return errors.Wrap(scheduler.Shutdown(), "failed to stop scheduler")
}
