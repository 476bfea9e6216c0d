// Package bootstrap wires configuration, infrastructure and services into a
// runnable API server.  Both cmd/apiserver and the CLI serve command build
// the application through this package.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	expapp "github.com/turtacn/mixingcompass/internal/application/experiment"
	hspapp "github.com/turtacn/mixingcompass/internal/application/hsp"
	solventapp "github.com/turtacn/mixingcompass/internal/application/solvent"
	"github.com/turtacn/mixingcompass/internal/config"
	domainexp "github.com/turtacn/mixingcompass/internal/domain/experiment"
	domainhsp "github.com/turtacn/mixingcompass/internal/domain/hsp"
	domainsol "github.com/turtacn/mixingcompass/internal/domain/solvent"
	"github.com/turtacn/mixingcompass/internal/infrastructure/database/postgres"
	"github.com/turtacn/mixingcompass/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/mixingcompass/internal/infrastructure/database/redis"
	"github.com/turtacn/mixingcompass/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mixingcompass/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/mixingcompass/internal/intelligence/hsppredictor"
	httpserver "github.com/turtacn/mixingcompass/internal/interfaces/http"
	"github.com/turtacn/mixingcompass/internal/interfaces/http/handlers"
	"github.com/turtacn/mixingcompass/internal/interfaces/http/middleware"
	"github.com/turtacn/mixingcompass/internal/visualization"
)

// Version is injected at build time via ldflags.
var Version = "dev"

// App aggregates the long-lived components of one server process.
type App struct {
	Config *config.Config
	Logger logging.Logger
	Server *httpserver.Server

	pool     *pgxpool.Pool
	redis    *redis.Client
	producer *kafka.Producer
}

// New builds the full application from configuration.  Postgres is
// mandatory; Redis and Kafka are optional and skipped when unconfigured.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	app := &App{Config: cfg, Logger: logger}

	// ── Postgres ──
	pgCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.DBName,
		Username:        cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxConns),
		MinConns:        int32(cfg.Database.MinConns),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
	if err := postgres.RunMigrations(pgCfg.DSN()); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	pool, err := postgres.NewPool(ctx, pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	app.pool = pool

	var solventRepo domainsol.Repository = repositories.NewSolventRepository(pool, logger)
	experimentRepo := repositories.NewExperimentRepository(pool, logger)

	// ── Redis (optional) ──
	var locker *redis.Locker
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(&redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		app.redis = client

		cacheOpts := []redis.CacheOption{}
		if cfg.Redis.KeyPrefix != "" {
			cacheOpts = append(cacheOpts, redis.WithPrefix(cfg.Redis.KeyPrefix))
		}
		if cfg.Redis.DefaultTTL > 0 {
			cacheOpts = append(cacheOpts, redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
		}
		cache := redis.NewCache(client, logger, cacheOpts...)
		solventRepo = redis.NewCachedSolventRepository(solventRepo, cache, cfg.Solvent.CacheTTL, logger)
		locker = redis.NewLocker(client, logger)
	}

	// ── Metrics ──
	var appMetrics *prometheus.AppMetrics
	var collector prometheus.MetricsCollector
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            "mixingcompass",
			Subsystem:            "api",
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("create metrics collector: %w", err)
		}
		appMetrics = prometheus.NewAppMetrics(collector)
	}

	// ── Services ──
	domainSolvents := domainsol.NewService(solventRepo, logger)

	var solventOpts []solventapp.Option
	if locker != nil {
		solventOpts = append(solventOpts, solventapp.WithImportLocker(locker))
	}
	solventSvc := solventapp.NewService(domainSolvents, logger, solventOpts...)

	if err := seedSolvents(ctx, cfg, solventRepo, solventSvc, logger); err != nil {
		app.Close()
		return nil, err
	}

	estimator := domainhsp.NewEstimator(logger)
	radiusOpt := domainhsp.NewRadiusOnlyOptimizer(estimator, logger)
	var fitMetrics hspapp.FitMetrics
	if appMetrics != nil {
		fitMetrics = prometheus.NewFitObserver(appMetrics)
	}
	hspSvc := hspapp.NewService(domainSolvents, estimator, radiusOpt, fitMetrics, logger)

	// ── Kafka (optional) ──
	var publisher domainexp.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		if cfg.Kafka.AutoCreateTopics {
			// Provisioning is best-effort: a broker that disallows admin
			// operations should not keep the API from starting.
			if tm, err := kafka.DialTopicManager(ctx, cfg.Kafka.Brokers[0], logger); err != nil {
				logger.Warn("kafka topic provisioning skipped", logging.Err(err))
			} else {
				if err := tm.EnsureDefaultTopics(ctx, cfg.Kafka.NumPartitions, cfg.Kafka.ReplicationFactor); err != nil {
					logger.Warn("kafka topic provisioning failed", logging.Err(err))
				}
				if err := tm.Close(); err != nil {
					logger.Warn("kafka admin connection close failed", logging.Err(err))
				}
			}
		}

		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:    cfg.Kafka.Brokers,
			MaxRetries: cfg.Kafka.ProducerRetries,
			BatchSize:  cfg.Kafka.BatchSize,
		}, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		app.producer = producer
		publisher = kafka.NewExperimentPublisher(producer, logger)
	}

	experimentSvc := expapp.NewService(experimentRepo, hspSvc, publisher,
		visualization.NewBuilder(logger), logger)

	predictor := hsppredictor.NewPredictor(logger)
	if cfg.Predictor.ModelPath != "" {
		if err := predictor.LoadWeights(cfg.Predictor.ModelPath); err != nil {
			logger.Warn("falling back to built-in predictor weights",
				logging.String("path", cfg.Predictor.ModelPath), logging.Err(err))
		}
	}

	// ── HTTP ──
	checkers := []handlers.HealthChecker{
		handlers.CheckerFunc{ComponentName: "postgres", Fn: func(ctx context.Context) error {
			return postgres.HealthCheck(ctx, pool)
		}},
	}
	if app.redis != nil {
		redisClient := app.redis
		checkers = append(checkers, handlers.CheckerFunc{ComponentName: "redis", Fn: func(ctx context.Context) error {
			return redisClient.Ping(ctx)
		}})
	}

	cors := middleware.DefaultCORSConfig()
	routerCfg := httpserver.RouterConfig{
		HSPHandler:        handlers.NewHSPHandler(hspSvc, logger),
		SolventHandler:    handlers.NewSolventHandler(solventSvc, logger),
		ExperimentHandler: handlers.NewExperimentHandler(experimentSvc, logger),
		PredictorHandler:  handlers.NewPredictorHandler(predictor, appMetrics, logger),
		HealthHandler:     handlers.NewHealthHandler(Version, checkers...),
		CORS:              &cors,
		Logger:            logger,
		Metrics:           appMetrics,
		MetricsCollector:  collector,
	}
	app.Server = httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	return app, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- a.Server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := a.Server.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
}

// Close releases all infrastructure connections.
func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.Logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", logging.Err(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// seedSolvents imports the configured CSV table when the database is empty.
func seedSolvents(ctx context.Context, cfg *config.Config, repo domainsol.Repository, svc solventapp.Service, logger logging.Logger) error {
	if cfg.Solvent.CSVPath == "" {
		return nil
	}
	count, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("count solvents: %w", err)
	}
	if count > 0 {
		return nil
	}

	f, err := os.Open(cfg.Solvent.CSVPath)
	if err != nil {
		logger.Warn("solvent seed file not found, starting with empty table",
			logging.String("path", cfg.Solvent.CSVPath), logging.Err(err))
		return nil
	}
	defer f.Close()

	summary, err := svc.ImportCSV(ctx, f, domainsol.SourceBuiltin)
	if err != nil {
		return fmt.Errorf("seed solvents: %w", err)
	}
	logger.Info("seeded solvent table",
		logging.String("path", cfg.Solvent.CSVPath),
		logging.Int("imported", summary.Imported),
		logging.Int("skipped", summary.Skipped))
	return nil
}
