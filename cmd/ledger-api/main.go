package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carbon-scribe/project-portal/ledger-backend/internal/auth"
	"carbon-scribe/project-portal/ledger-backend/internal/blockchain"
	"carbon-scribe/project-portal/ledger-backend/internal/config"
	"carbon-scribe/project-portal/ledger-backend/internal/credits"
	"carbon-scribe/project-portal/ledger-backend/internal/logging"
	"carbon-scribe/project-portal/ledger-backend/internal/metrics"
	"carbon-scribe/project-portal/ledger-backend/internal/monitoring"
	"carbon-scribe/project-portal/ledger-backend/internal/prediction"
	"carbon-scribe/project-portal/ledger-backend/internal/realtime"
	"carbon-scribe/project-portal/ledger-backend/internal/settings"
	"carbon-scribe/project-portal/ledger-backend/pkg/kv"
	"carbon-scribe/project-portal/ledger-backend/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
	logger.Info("Server exiting")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry, "ledger_api")

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("Ledger store ready", zap.String("driver", cfg.Storage.Driver))

	broker := realtime.NewBroker(64, logger)

	// Prediction
	var oracle prediction.Oracle
	if cfg.Prediction.APIKey != "" {
		gemini, err := prediction.NewGeminiOracle(ctx, cfg.Prediction.APIKey, cfg.Prediction.Model)
		if err != nil {
			logger.Warn("Failed to create prediction oracle, using fallback only", zap.Error(err))
		} else {
			oracle = gemini
		}
	}
	predictor := prediction.NewService(oracle, cfg.Prediction.Timeout.Std(), logger, m)

	// Blockchain
	simulator := blockchain.NewSimulator(blockchain.Config{
		MinDelay: cfg.Blockchain.MinDelay.Std(),
		MaxDelay: cfg.Blockchain.MaxDelay.Std(),
	}, logger, m)
	defer simulator.Stop()

	// Credits
	creditsRepo := credits.NewRepository(store, broker, logger, m, time.Now)
	creditsService := credits.NewService(creditsRepo, predictor, simulator, logger)
	creditsHandler := credits.NewHandler(creditsService, logger)

	reconciler := blockchain.NewReconciler(creditsService, simulator, cfg.Blockchain.ReconcileSchedule, logger)
	if err := reconciler.Start(); err != nil {
		return fmt.Errorf("failed to start reconciler: %w", err)
	}
	defer reconciler.Stop()

	// Monitoring
	photos, err := openPhotoStorage(ctx, cfg)
	if err != nil {
		return err
	}
	monitoringRepo := monitoring.NewRepository(store, broker, logger, m, time.Now)
	monitoringService := monitoring.NewService(monitoringRepo, photos, monitoring.Config{
		RecentWindowDays: cfg.Monitoring.RecentWindowDays,
		PhotoBucket:      photoBucket(cfg),
		PhotoURLExpiry:   cfg.Photos.URLExpiry.Std(),
	}, logger)
	monitoringHandler := monitoring.NewHandler(monitoringService, logger)

	// Settings
	settingsService := settings.NewService(settings.NewRepository(store), settings.Preferences{
		Theme:            settings.Theme(cfg.Preferences.Theme),
		DynamicColor:     cfg.Preferences.DynamicColor,
		Language:         cfg.Preferences.Language,
		Timezone:         cfg.Preferences.Timezone,
		RecentWindowDays: cfg.Monitoring.RecentWindowDays,
	}, logger)
	settingsHandler := settings.NewHandler(settingsService, logger)

	// Auth
	authMiddleware := auth.NewMiddleware(cfg.Security.JWTSecret, logger)
	if !authMiddleware.Enabled() {
		logger.Warn("JWT_SECRET not set, API authentication is disabled")
	}

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), logging.Middleware(logger), cors())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/ws", authMiddleware.RequireAuth(), realtime.NewHandler(broker, logger).Serve)

	api := router.Group("/api/v1")
	auth.RegisterRoutes(api, auth.NewHandler(authMiddleware))
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		creditsHandler.RegisterRoutes(protected)
		monitoringHandler.RegisterRoutes(protected)
		settingsHandler.RegisterRoutes(protected)
	}

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("Server started", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful Shutdown
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.Storage.Driver) {
	case "memory":
		return kv.NewMemoryStore(), noop, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return kv.NewRedisStore(client, cfg.Redis.KeyPrefix), func() { client.Close() }, nil
	case "dynamodb":
		client, err := kv.NewDynamoClient(ctx, kv.DynamoConfig{
			Region:   cfg.DynamoDB.Region,
			Endpoint: cfg.DynamoDB.Endpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		return kv.NewDynamoStore(client, cfg.DynamoDB.Table), noop, nil
	case "mongo":
		client, coll, err := kv.OpenMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}
		return kv.NewMongoStore(coll), closeFn, nil
	}

	var (
		db  *gorm.DB
		err error
	)
	if strings.ToLower(cfg.Storage.Driver) == "postgres" {
		db, err = kv.OpenPostgres(cfg.Storage.DSN)
	} else {
		db, err = kv.OpenSQLite(cfg.Storage.SQLitePath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store, err := kv.NewSQLStore(db)
	if err != nil {
		return nil, nil, err
	}
	closeFn := noop
	if sqlDB, err := db.DB(); err == nil {
		closeFn = func() { sqlDB.Close() }
	}
	return store, closeFn, nil
}

// openPhotoStorage returns an S3 client when a bucket is configured and an
// in-memory store otherwise.
func openPhotoStorage(ctx context.Context, cfg *config.Config) (storage.S3Client, error) {
	if cfg.Photos.Bucket == "" {
		return storage.NewMemoryS3Client(), nil
	}
	client, err := storage.NewAWSS3Client(ctx, storage.S3Config{
		Region:          cfg.Photos.Region,
		Endpoint:        cfg.Photos.Endpoint,
		AccessKeyID:     cfg.Photos.AccessKeyID,
		SecretAccessKey: cfg.Photos.SecretAccessKey,
		UsePathStyle:    cfg.Photos.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create photo storage: %w", err)
	}
	return client, nil
}

func photoBucket(cfg *config.Config) string {
	if cfg.Photos.Bucket == "" {
		return "monitoring-photos"
	}
	return cfg.Photos.Bucket
}

// CORS Middleware
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
