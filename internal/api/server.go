package api

import (
	"context"
	"net/http"
	"time"

	"example.com/backstage/dashboard/config"
	"example.com/backstage/dashboard/internal/api/handlers"
	"example.com/backstage/dashboard/internal/api/middleware"
	"example.com/backstage/dashboard/internal/metrics"
	"example.com/backstage/dashboard/internal/notify"
	"example.com/backstage/dashboard/internal/panels"
	"example.com/backstage/dashboard/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the dashboard HTTP server
type Server struct {
	config     config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	hub        *handlers.Hub
	dashboard  *panels.Dashboard
	center     *notify.Center
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, dashboard *panels.Dashboard, center *notify.Center, metricsCollector *metrics.Metrics, tracer tracing.Tracer) *Server {
	if tracer == nil {
		tracer = tracing.Noop()
	}
	server := &Server{
		config:    cfg,
		dashboard: dashboard,
		center:    center,
		metrics:   metricsCollector,
		tracer:    tracer,
		hub:       handlers.NewHub(center),
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           server.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Timeout,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(s.config.CorsOrigins))
	if app := s.tracer.Application(); app != nil {
		router.Use(middleware.NewRelicMiddleware(app))
	}

	handlers.NewMetricsHandler(s.metrics, s.tracer).RegisterRoutes(router)
	handlers.NewNotificationsHandler(s.center, s.hub, s.config.CorsOrigins).RegisterRoutes(router)
	handlers.NewPanelsHandler(s.dashboard, s.tracer).RegisterRoutes(router)

	return router
}

// Router exposes the configured routes
func (s *Server) Router() http.Handler {
	return s.router
}

// Start relays notifications and serves HTTP until Shutdown
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	log.Info().Str("address", s.config.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	// background history reloads started by day advances
	s.dashboard.Simulation.Settle()

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
