package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-reading-log/api/swagger"
	"github.com/noah-isme/sma-reading-log/internal/handler"
	"github.com/noah-isme/sma-reading-log/internal/middleware"
	"github.com/noah-isme/sma-reading-log/internal/repository"
	"github.com/noah-isme/sma-reading-log/internal/service"
	"github.com/noah-isme/sma-reading-log/internal/session"
	"github.com/noah-isme/sma-reading-log/internal/sheetapi"
	"github.com/noah-isme/sma-reading-log/internal/view"
	"github.com/noah-isme/sma-reading-log/pkg/cache"
	"github.com/noah-isme/sma-reading-log/pkg/config"
	"github.com/noah-isme/sma-reading-log/pkg/database"
	"github.com/noah-isme/sma-reading-log/pkg/export"
	"github.com/noah-isme/sma-reading-log/pkg/logger"
)

// @title Reading Log
// @version 1.0.0
// @description Student reading log views and the self-hosted record script endpoint
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.NeedsDatabase() {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect database", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
		checks["database"] = db.PingContext
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	var reading *service.ReadingService
	if db != nil {
		var cacheRepo service.CacheRepository
		if redisClient != nil && cfg.Dashboard.CacheEnabled {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
		cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
		reading = service.NewReadingService(
			repository.NewStudentRepository(db, metrics),
			repository.NewEntryRepository(db, metrics),
			cacheSvc,
			validator.New(),
			logr,
			service.ReadingConfig{DefaultPassword: cfg.ScriptAPI.DefaultPassword, DashboardCacheTTL: cfg.Dashboard.CacheTTL},
		)
	}

	var api sheetapi.API
	if cfg.API.Mode == config.APIModeLocal {
		api = sheetapi.NewLocal(reading, logr, metrics)
	} else {
		api = sheetapi.NewClient(sheetapi.ClientConfig{URL: cfg.API.URL, Timeout: cfg.API.Timeout}, logr, metrics)
	}

	var provider session.StorageProvider = session.NewMemoryProvider()
	if cfg.Session.Store == config.SessionStoreRedis {
		provider = session.NewRedisProvider(redisClient, "")
	}
	registry := session.NewRegistry(provider, cfg.Session.RestoreMode, logr, metrics)

	renderer, err := view.New()
	if err != nil {
		logr.Fatal("failed to parse templates", zap.Error(err))
	}

	pdf := export.NewPDFExporter(cfg.Export.PDFFont)
	pdf.Widths = []float64{1, 2, 3, 2, 5, 1, 1.5}
	exporter := service.NewExportService(logr, export.NewCSVExporter(), pdf)

	limiter := middleware.NewRateLimiter(cfg.ScriptAPI.LoginRateLimit, cfg.ScriptAPI.LoginRateBurst, logr)

	var script *handler.ScriptHandler
	if cfg.ScriptAPI.Enabled {
		scriptLimiter := middleware.NewRateLimiter(cfg.ScriptAPI.LoginRateLimit, cfg.ScriptAPI.LoginRateBurst, logr)
		go sweepLimiter(ctx, scriptLimiter, cfg.Session.SweepInterval)
		script = handler.NewScriptHandler(reading, scriptLimiter, logr)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Logger:      logr,
		Metrics:     metrics,
		Renderer:    renderer,
		API:         api,
		Registry:    registry,
		DeviceCodec: session.NewDeviceCodec(cfg.Session.Secret),
		SessionOptions: middleware.SessionOptions{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Env == config.EnvProduction,
		},
		Exporter:        exporter,
		LoginLimiter:    limiter,
		Script:          script,
		ReadinessChecks: checks,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		DefaultPassword: cfg.ScriptAPI.DefaultPassword,
		EnableDocs:      cfg.Env != config.EnvProduction,
	})

	go registry.Run(ctx, cfg.Session.SweepInterval, cfg.Session.IdleTTL)
	go sweepLimiter(ctx, limiter, cfg.Session.SweepInterval)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "api_mode", cfg.API.Mode, "script_api", cfg.ScriptAPI.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup(interval)
		}
	}
}
