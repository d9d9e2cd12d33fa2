package cmd

import (
	"os"
	"strings"

	"example.com/backstage/dashboard/config"
	"example.com/backstage/dashboard/internal/cache"
	"example.com/backstage/dashboard/internal/gateway"
	"example.com/backstage/dashboard/internal/metrics"
	"example.com/backstage/dashboard/internal/namecache"
	"example.com/backstage/dashboard/internal/notify"
	"example.com/backstage/dashboard/internal/panels"
	"example.com/backstage/dashboard/internal/search"
	"example.com/backstage/dashboard/internal/tracing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const catalogKeyPrefix = "dashboard"

// app holds everything a command needs, wired from configuration
type app struct {
	cfg       config.Config
	tracer    tracing.Tracer
	metrics   *metrics.Metrics
	center    *notify.Center
	client    *gateway.Client
	redis     *cache.RedisCache
	names     *namecache.Cache
	dashboard *panels.Dashboard
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	configureLogging(cfg.Logging)

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.Noop()
	}

	metricsCollector := metrics.NewMetrics()
	client := gateway.NewClient(cfg.Backend, tracer, metricsCollector)
	log.Info().Str("backend", client.BaseURL()).Msg("Using simulation backend")

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without shared product names")
		redisCache = nil
	}
	metricsCollector.SetHealth("redis", err == nil)

	var store namecache.Store
	if redisCache.Enabled() {
		store = redisCache
	}
	names := namecache.New(client, store, cache.ProductCatalogKey(catalogKeyPrefix))

	var index panels.EventIndex
	eventIndex, err := search.NewEventIndex(cfg.Elastic)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without event search")
	case eventIndex != nil:
		index = eventIndex
	}

	center := notify.NewCenter(cfg.Panels.NotificationsLimit)
	dashboard := panels.NewDashboard(client, names, center, index, cfg.Panels.BOMConcurrency)

	return &app{
		cfg:       cfg,
		tracer:    tracer,
		metrics:   metricsCollector,
		center:    center,
		client:    client,
		redis:     redisCache,
		names:     names,
		dashboard: dashboard,
	}, nil
}

// Close releases external connections
func (a *app) Close() {
	a.dashboard.Simulation.Settle()
	if a.redis.Enabled() {
		if err := a.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	a.tracer.Close()
}

func configureLogging(cfg config.LoggingConfig) {
	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level := cfg.Level
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if debug {
		level = "debug"
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && level != "" {
		zerolog.SetGlobalLevel(parsed)
	}
}
