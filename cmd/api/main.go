package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	httpapi "github.com/wms-platform/sorter-station-service/internal/api/http"
	"github.com/wms-platform/sorter-station-service/internal/application"
	"github.com/wms-platform/sorter-station-service/internal/config"
	"github.com/wms-platform/sorter-station-service/internal/domain"
	"github.com/wms-platform/sorter-station-service/internal/infrastructure/clients"
	kafkaPublisher "github.com/wms-platform/sorter-station-service/internal/infrastructure/kafka"
	mongoAudit "github.com/wms-platform/sorter-station-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/sorter-station-service/pkg/cloudevents"
	"github.com/wms-platform/sorter-station-service/pkg/kafka"
	"github.com/wms-platform/sorter-station-service/pkg/logging"
	"github.com/wms-platform/sorter-station-service/pkg/metrics"
	"github.com/wms-platform/sorter-station-service/pkg/middleware"
	"github.com/wms-platform/sorter-station-service/pkg/mongodb"
	"github.com/wms-platform/sorter-station-service/pkg/tracing"
)

const serviceName = "sorter-station-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(logging.DefaultConfig(serviceName))
		bootLogger.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	// Setup enhanced logger
	logConfig := logging.DefaultConfig(cfg.ServiceName)
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logConfig.Environment = cfg.Environment
	logConfig.Version = cfg.Version
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting sorter-station-service API")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Service stopped with error")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(cfg.ServiceName)
	tracingConfig.ServiceVersion = cfg.Version
	tracingConfig.Environment = cfg.Environment
	tracingConfig.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tracingConfig.SampleRate = cfg.Tracing.SampleRate
	tracingConfig.Enabled = cfg.Tracing.Enabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		tracing.InstallPropagator()
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "enabled", tracingConfig.Enabled, "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(cfg.ServiceName))
	logger.Info("Metrics initialized")

	wmsClient, err := clients.NewWMSClient(clients.Config{
		BaseURL:              cfg.Upstream.BaseURL,
		APIKey:               cfg.Upstream.APIKey,
		CenterID:             cfg.Upstream.CenterID,
		SnapshotPath:         cfg.Upstream.SnapshotPath,
		ContainerPagePath:    cfg.Upstream.ContainerPagePath,
		FeedbackPath:         cfg.Upstream.FeedbackPath,
		ContainerPage:        cfg.Upstream.ContainerPage,
		MaxContainerPageSize: cfg.Upstream.MaxContainerPage,
		Timeout:              cfg.Upstream.Timeout,
	}, m, logger)
	if err != nil {
		return err
	}
	logger.Info("WMS client initialized", "baseUrl", cfg.Upstream.BaseURL)

	deps := application.Dependencies{
		Snapshots:  wmsClient,
		Containers: wmsClient,
		Feedback:   wmsClient,
		Publisher:  kafkaPublisher.NewLogPublisher(logger),
		Metrics:    m,
		Logger:     logger,
	}

	// Kafka producer for station events
	if cfg.Kafka.Enabled {
		kafkaConfig := kafka.DefaultConfig()
		kafkaConfig.Brokers = cfg.Kafka.Brokers
		kafkaConfig.ClientID = cfg.ServiceName
		instrumentedProducer := kafka.NewInstrumentedProducer(kafka.NewProducer(kafkaConfig), m, logger)
		defer instrumentedProducer.Close()

		eventFactory := cloudevents.NewEventFactory(cloudevents.SourceSorterStation)
		deps.Publisher = kafkaPublisher.NewEventPublisher(instrumentedProducer, eventFactory, cfg.Kafka.Topic)
		logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	g, gctx := errgroup.WithContext(ctx)

	// MongoDB scan audit trail. The writer outlives the HTTP server so rows
	// queued by in-flight requests and the auto-clear timer are flushed.
	readiness := func() error { return nil }
	stopAudit := func() {}
	if cfg.MongoDB.Enabled {
		mongoConfig := mongodb.DefaultConfig()
		mongoConfig.URI = cfg.MongoDB.URI
		mongoConfig.Database = cfg.MongoDB.Database
		mongoClient, err := mongodb.NewClient(ctx, mongoConfig)
		if err != nil {
			return err
		}
		instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = instrumentedMongo.Close(closeCtx)
		}()
		logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

		auditRepo := mongoAudit.NewScanAuditRepository(instrumentedMongo.Collection(cfg.MongoDB.Collection))
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			logger.WithError(err).Warn("Failed to create scan audit indexes")
		}
		auditWriter := mongoAudit.NewScanAuditWriter(auditRepo, mongoAudit.WriterConfig{
			BufferSize: cfg.MongoDB.BufferSize,
			BatchSize:  cfg.MongoDB.BatchSize,
		}, logger)
		auditCtx, cancelAudit := context.WithCancel(context.Background())
		stopAudit = cancelAudit
		defer cancelAudit()
		g.Go(func() error { return auditWriter.Run(auditCtx) })

		deps.Auditor = auditWriter
		deps.AuditTrail = auditRepo
		readiness = func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return instrumentedMongo.HealthCheck(checkCtx)
		}
	}

	station := domain.NewStation(domain.StationConfig{
		DefaultGridCount:  cfg.Station.DefaultGridCount,
		HistoryCapacity:   cfg.Station.HistoryCapacity,
		ForceSorterAccess: cfg.Station.ForceSorterAccess,
	})
	stationService := application.NewStationService(station, deps, application.Config{
		AutoClearDelay: cfg.Station.AutoClearDelay,
	})
	defer stationService.Close()

	// Setup Gin router with middleware
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(cfg.ServiceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(cfg.ServiceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(cfg.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(cfg.ServiceName, readiness))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	snapshotValidator, err := clients.NewSnapshotValidator()
	if err != nil {
		return err
	}
	httpapi.SetupRoutes(router, httpapi.NewHandlers(stationService, snapshotValidator, logger))

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("Server started", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx, srv, stationService, stopAudit); err != nil {
			logger.WithError(err).Error("Server forced to shutdown")
		}
		return nil
	})

	return g.Wait()
}

type gracefulServer interface {
	Shutdown(ctx context.Context) error
}

type closer interface {
	Close()
}

// shutdown stops the HTTP server, then the station service and its timers,
// then the audit writer, so every audit row produced on the way out is
// still queued before the writer drains.
func shutdown(ctx context.Context, srv gracefulServer, service closer, stopAudit func()) error {
	err := srv.Shutdown(ctx)
	service.Close()
	stopAudit()
	return err
}
