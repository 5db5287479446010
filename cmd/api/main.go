package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/lanternhq/overlap/config"
	alumnirepo "github.com/lanternhq/overlap/internal/repositories/alumni"
	companyrepo "github.com/lanternhq/overlap/internal/repositories/company"
	customerrepo "github.com/lanternhq/overlap/internal/repositories/customer"
	personrepo "github.com/lanternhq/overlap/internal/repositories/person"
	workhistoryrepo "github.com/lanternhq/overlap/internal/repositories/workhistory"
	"github.com/lanternhq/overlap/pkg/cache"
	"github.com/lanternhq/overlap/pkg/database"
	"github.com/lanternhq/overlap/pkg/graph"
	"github.com/lanternhq/overlap/pkg/ingest"
	"github.com/lanternhq/overlap/pkg/kafka"
	"github.com/lanternhq/overlap/pkg/middleware"
	"github.com/lanternhq/overlap/pkg/overlap"
	adminroutes "github.com/lanternhq/overlap/pkg/routes/admin"
	companyroutes "github.com/lanternhq/overlap/pkg/routes/company"
	customerroutes "github.com/lanternhq/overlap/pkg/routes/customer"
	"github.com/lanternhq/overlap/pkg/routes/health"
	overlaproutes "github.com/lanternhq/overlap/pkg/routes/overlap"
	personroutes "github.com/lanternhq/overlap/pkg/routes/person"
	statsroutes "github.com/lanternhq/overlap/pkg/routes/stats"
	"github.com/lanternhq/overlap/pkg/tracing"
	"github.com/lanternhq/overlap/pkg/tracing/exporters"
)

func main() {
	// Missing .env is fine, env vars may come from the environment
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(cfg config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(&exporters.ConsoleExporter{}))
	defer tp.Shutdown(context.Background())
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
	sqlxDB, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	db := database.NewDatabaseInstance(sqlxDB, logger)
	defer db.Close()

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	var redisClient *cache.Client
	if cfg.RedisEnabled {
		redisClient, err = cache.NewClient(cache.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
	}
	var summaryCache *cache.SummaryCache
	if redisClient != nil {
		summaryCache = cache.NewSummaryCache(redisClient, logger, cfg.SummaryCacheTTL)
	}

	var projector *graph.Projector
	if cfg.GraphEnabled {
		graphClient, err := graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to graph database: %w", err)
		}
		defer graphClient.Close(context.Background())
		if err := graphClient.VerifyConnectivity(ctx); err != nil {
			return fmt.Errorf("graph database is unreachable: %w", err)
		}
		projector = graph.NewProjector(graphClient, logger)
	}

	var producer *kafka.Producer
	if cfg.KafkaProducerEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
	}

	companyRepo := companyrepo.NewRepository(db, logger)
	customerRepo := customerrepo.NewRepository(db, logger)
	personRepo := personrepo.NewRepository(db, logger)
	workRepo := workhistoryrepo.NewRepository(db, logger)
	alumniRepo := alumnirepo.NewRepository(db, logger)

	var publisher ingest.EventPublisher
	if producer != nil {
		publisher = producer
	}
	processor := ingest.NewProcessor(personRepo, workRepo, publisher, logger)

	overlapService := overlap.NewService(
		companyRepo,
		customerRepo,
		alumniRepo,
		workRepo,
		summaryCache,
		projector,
		logger,
		cfg.FetchPageSize,
		cfg.EmployerSummaryLimit,
	)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*companyrepo.Repository](container, companyRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*customerrepo.Repository](container, customerRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*personrepo.Repository](container, personRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*alumnirepo.Repository](container, alumniRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*ingest.Processor](container, processor); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*overlap.Service](container, overlapService); err != nil {
		return err
	}

	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, processor.HandleMessage)
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start kafka consumer: %w", err)
		}
		defer consumer.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var redisPinger interface{ Ping(ctx context.Context) error }
	if redisClient != nil {
		redisPinger = redisClient
	}
	checker := health.NewChecker(db, redisPinger, version)
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	companies := api.Group("/companies")
	companyroutes.Register(companies)
	customerroutes.Register(companies)
	overlaproutes.Register(companies)
	overlaproutes.RegisterGlobal(api.Group("/employers"))
	personroutes.Register(api.Group("/people"))
	adminroutes.Register(api.Group("/admin"))
	statsroutes.Register(api.Group("/stats"))

	checker.SetReady(true)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(fmt.Sprintf(":%d", cfg.Port))
	}()
	logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

func newZapLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if cfg.PrettyLogs {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.Level = level
		return zcfg.Build()
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	return zcfg.Build()
}

var version = "dev"
