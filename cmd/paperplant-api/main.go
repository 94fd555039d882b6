package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iceplantengineering/paperplant/common/database"
	logpkg "github.com/iceplantengineering/paperplant/common/logger"
	rediscommon "github.com/iceplantengineering/paperplant/common/redis"
	"github.com/iceplantengineering/paperplant/internal/alerts"
	"github.com/iceplantengineering/paperplant/internal/cache"
	"github.com/iceplantengineering/paperplant/internal/config"
	httpapi "github.com/iceplantengineering/paperplant/internal/http"
	"github.com/iceplantengineering/paperplant/internal/kpi"
	"github.com/iceplantengineering/paperplant/internal/lineage"
	"github.com/iceplantengineering/paperplant/internal/monitor"
	"github.com/iceplantengineering/paperplant/internal/repository"
	"github.com/iceplantengineering/paperplant/internal/service"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "paperplant-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// store: Postgres when reachable, otherwise in-memory
	var db *sql.DB
	var store repository.EntityStore = repository.NewMemoryStore()
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			store = repository.NewPostgresStore(db, logger)
			logger.Info("DB enabled for paperplant-api")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	defer database.Close(db)

	// optional Redis: flow cache + alert event stream
	var redisClient *redis.Client
	var flowCache *cache.FlowCache
	var notifier service.AlertNotifier
	if cfg.RedisEnabled {
		rc := rediscommon.NewRedisClient(&cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rediscommon.Ping(ctx, rc)
		cancel()
		if err == nil {
			redisClient = rc
			flowCache = cache.NewFlowCache(cache.NewRedisKVStore(rc), cfg.FlowCacheTTL, logger)
			notifier = service.NewStreamNotifier(rc, cfg.AlertEventStream)
			logger.Info("Redis enabled for paperplant-api", zap.String("addr", cfg.Redis.Addr))
		} else {
			logger.Warn("Redis enabled but ping failed, running without cache", zap.Error(err))
			_ = rc.Close()
		}
	}
	defer rediscommon.Close(redisClient)

	resolver := lineage.NewResolver(store, logger)
	agg := monitor.NewAggregator(store, logger)
	registry := alerts.NewRegistry(store, logger)
	evaluator := kpi.NewEvaluator(store, logger)

	api := &httpapi.API{
		Dashboard: service.NewDashboardService(evaluator, agg, registry, flowCache, logger),
		Alerts:    service.NewAlertService(registry, notifier, flowCache, logger),
		Monitor:   agg,
		Lineage:   resolver,
		KPI:       evaluator,
		Registry:  registry,
		Logger:    logger,
	}
	router := httpapi.NewRouter(logger)
	router.RegisterRoutes(api)

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		logger.Error("HTTP server error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("Error stopping server", zap.Error(err))
	}
	logger.Info("Service stopped")
}
