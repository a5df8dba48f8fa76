package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/parkops/pricingservice/internal/config"
	"github.com/parkops/pricingservice/internal/db"
	"github.com/parkops/pricingservice/internal/events"
	"github.com/parkops/pricingservice/internal/httpapi"
	"github.com/parkops/pricingservice/internal/log"
	"github.com/parkops/pricingservice/internal/metrics"
	"github.com/parkops/pricingservice/internal/ratelimit"
	"github.com/parkops/pricingservice/internal/repository/postgres"
	"github.com/parkops/pricingservice/internal/service"
	"github.com/parkops/pricingservice/internal/tracing"
)

// App represents the application
type App struct {
	config          *config.Config
	logger          *zap.Logger
	dbPool          *db.Pool
	redisClient     *redis.Client
	publisher       events.Publisher
	httpServer      *httpapi.Server
	metricsServer   *metrics.Server
	shutdownTracing func(context.Context)
}

// New creates a new application instance
func New(cfg *config.Config) (*App, error) {
	if err := log.Init(cfg.Log.Level, cfg.AppName); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	ctx := context.Background()
	logger := log.L(ctx)

	logger.Info("Initializing pricing service application",
		zap.String("app_name", cfg.AppName),
		zap.String("http_address", cfg.HTTP.Address))

	a := &App{config: cfg, logger: logger, publisher: events.NoopPublisher{}}
	if err := a.init(ctx); err != nil {
		_ = a.Shutdown(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.config

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(tracing.Config{
			ServiceName:    cfg.AppName,
			ServiceVersion: "1.0.0",
			Environment:    cfg.Tracing.Environment,
			JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
			SamplingRatio:  cfg.Tracing.SamplingRatio,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.shutdownTracing = shutdown
	}

	if cfg.Postgres.DSN != "" {
		poolCfg := db.DefaultConfig(cfg.Postgres.DSN)
		poolCfg.MaxConns = cfg.Postgres.MaxConns
		pool, err := db.NewPool(ctx, poolCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		a.dbPool = pool
	}

	if cfg.Redis.Addr != "" {
		client, err := initializeRedis(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize redis: %w", err)
		}
		a.redisClient = client
	}

	if cfg.Kafka.Enabled {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		a.publisher = publisher
	}

	stores, err := NewCouponStores(ctx, cfg, a.redisCmdable(), a.pgDB())
	if err != nil {
		return fmt.Errorf("failed to initialize coupon stores: %w", err)
	}
	calculator, err := NewCalculator(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize calculator: %w", err)
	}
	svc := service.NewPricingService(calculator, stores.Coupons, stores.Usage, a.publisher)

	var extra []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewRedisFixedWindow(a.redisClient, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)
		extra = append(extra, ratelimit.Middleware(limiter))
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.NewHandler(svc), extra...)
	a.httpServer = httpapi.NewServer(httpapi.Config{
		Address:      cfg.HTTP.Address,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, router, a.logger)
	a.metricsServer = metrics.NewServer(cfg.Metrics.Address, a.logger)
	return nil
}

// redisCmdable avoids handing a typed nil client to the stores
func (a *App) redisCmdable() redis.Cmdable {
	if a.redisClient == nil {
		return nil
	}
	return a.redisClient
}

func (a *App) pgDB() postgres.DB {
	if a.dbPool == nil {
		return nil
	}
	return a.dbPool.Pool
}

// Run serves HTTP and metrics until ctx is cancelled or a server fails
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting pricing service application")

	errCh := make(chan error, 2)
	go func() { errCh <- a.httpServer.Start() }()
	go func() { errCh <- a.metricsServer.Start() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return errors.New("server stopped unexpectedly")
	}
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down pricing service application")

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		}
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shut down metrics server", zap.Error(err))
		}
	}

	if err := a.publisher.Close(); err != nil {
		a.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	if a.shutdownTracing != nil {
		a.shutdownTracing(ctx)
	}

	a.logger.Info("Application shutdown complete")
	_ = a.logger.Sync()
	return nil
}

// initializeRedis initializes the Redis client
func initializeRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
