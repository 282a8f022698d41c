package server

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/devpulse/devpulse/internal/api/http"
	"github.com/devpulse/devpulse/internal/api/middleware"
	"github.com/devpulse/devpulse/internal/api/ws"
	"github.com/devpulse/devpulse/internal/domain/broadcast"
	"github.com/devpulse/devpulse/internal/domain/dispatch"
	"github.com/devpulse/devpulse/internal/domain/event"
	"github.com/devpulse/devpulse/internal/domain/ingest"
	"github.com/devpulse/devpulse/internal/domain/store"
	"github.com/devpulse/devpulse/internal/domain/store/elastic"
	"github.com/devpulse/devpulse/internal/domain/store/memory"
	"github.com/devpulse/devpulse/internal/domain/trace"
	"github.com/devpulse/devpulse/internal/infrastructure/config"
	"github.com/devpulse/devpulse/internal/infrastructure/logging"
	"github.com/devpulse/devpulse/internal/infrastructure/monitoring"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router      *gin.Engine
	broadcaster *broadcast.Broadcaster
	dispatcher  *dispatch.Dispatcher
	ingest      *ingest.Service
	queries     *store.QueryService
	logger      *logging.Logger
	config      *config.Config
	metrics     *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing DevPulse collector",
		zap.String("port", cfg.Server.Port),
		zap.String("store_backend", cfg.Store.Backend),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Select the event store backend
	eventStore, err := newEventStore(cfg, logger.Logger)
	if err != nil {
		return nil, err
	}

	queries := store.NewQueryService(eventStore, logger.Logger)

	// Per-trace fan-out for live subscribers
	broadcaster := broadcast.New(logger.Logger,
		broadcast.WithMetrics(monitoring.NewBroadcastMetrics(metrics)),
		broadcast.WithPublishTimeout(cfg.Broadcast.PublishTimeout),
	)

	// Optional async forwarding to an upstream collector
	var dispatcher *dispatch.Dispatcher
	if cfg.Dispatch.Enabled {
		transport := dispatch.NewWebSocketTransport(cfg.Dispatch.UpstreamURL)
		dispatcher = dispatch.New(transport, dispatch.Config{
			QueueCapacity: cfg.Dispatch.QueueCapacity,
			BackoffBase:   cfg.Dispatch.BackoffBase,
			BackoffMax:    cfg.Dispatch.BackoffMax,
			DrainGrace:    cfg.Dispatch.DrainGrace,
		}, logger.Logger, dispatch.WithMetrics(monitoring.NewDispatchMetrics(metrics)))
		logger.Info("Upstream dispatch enabled", zap.String("url", cfg.Dispatch.UpstreamURL))
	}

	// Ingestion pipeline
	ingestOpts := []ingest.Option{
		ingest.WithStore(eventStore),
		ingest.WithPublisher(broadcaster),
		ingest.WithMetrics(monitoring.NewIngestMetrics(metrics)),
		ingest.WithLimits(event.Limits{
			MaxFieldBytes:      cfg.Ingest.MaxFieldBytes,
			MaxLocals:          cfg.Ingest.MaxLocals,
			MaxStackFrames:     cfg.Ingest.MaxStackFrames,
			MaxStackFrameBytes: cfg.Ingest.MaxStackFrameBytes,
		}),
	}
	if dispatcher != nil {
		ingestOpts = append(ingestOpts, ingest.WithQueue(dispatcher))
	}
	ingestSvc := ingest.NewService(logger.Logger, ingestOpts...)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(trace.Middleware())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Int("global_rps", cfg.RateLimit.GlobalRPS),
		)
		router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.GlobalRPS,
			Burst:             cfg.RateLimit.GlobalBurst,
		}))
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := apihttp.NewHandlers(ingestSvc, queries, logger.Logger)
	statsHandler := apihttp.NewStatsHandler(metrics)
	wsHandler := ws.NewHandler(broadcaster, ingestSvc, logger.Logger).WithMetrics(metrics)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Event ingestion and queries
	router.POST("/api/events", handlers.SubmitEvent)
	router.GET("/api/events", handlers.ListEvents)
	router.DELETE("/api/events", handlers.ClearEvents)

	// Trace queries
	router.GET("/api/traces", handlers.RecentTraces)
	router.GET("/api/traces/:traceId", handlers.TraceEvents)
	router.GET("/api/traces/:traceId/timeline", handlers.TraceTimeline)

	// WebSocket streaming
	router.GET("/ws/traces/:traceId", wsHandler.HandleSubscribe)
	router.GET("/ws/ingest", wsHandler.HandleIngest)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", statsHandler.Stats)

	logger.Info("Server initialized successfully")

	return &Server{
		router:      router,
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		ingest:      ingestSvc,
		queries:     queries,
		logger:      logger,
		config:      cfg,
		metrics:     metrics,
	}, nil
}

// newEventStore builds the configured persistence backend.
func newEventStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory", "":
		logger.Info("Using in-memory event store",
			zap.Int("max_events", cfg.Store.MemoryMaxEvents))
		return memory.New(cfg.Store.MemoryMaxEvents), nil

	case "elastic":
		client, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: cfg.Store.ElasticAddrs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
		}
		es := elastic.New(client, cfg.Store.ElasticIndex, logger)
		if err := es.EnsureIndex(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to prepare event index: %w", err)
		}
		logger.Info("Using elasticsearch event store",
			zap.Strings("addrs", cfg.Store.ElasticAddrs),
			zap.String("index", cfg.Store.ElasticIndex))
		return es, nil

	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.dispatcher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Dispatch.DrainGrace)
		defer cancel()
		if err := s.dispatcher.Close(ctx); err != nil {
			s.logger.Error("Failed to drain dispatcher", zap.Error(err))
		} else {
			s.logger.Info("Dispatcher drained")
		}
	}

	s.broadcaster.Close()
	s.logger.Info("Broadcaster closed")

	s.metrics.Stop()

	// Sync logger before exit
	s.logger.Sync()

	return nil
}
