package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iceplantengineering/paperplant/common/database"
	logpkg "github.com/iceplantengineering/paperplant/common/logger"
	"github.com/iceplantengineering/paperplant/common/mqtt"
	rediscommon "github.com/iceplantengineering/paperplant/common/redis"
	"github.com/iceplantengineering/paperplant/internal/cache"
	"github.com/iceplantengineering/paperplant/internal/config"
	"github.com/iceplantengineering/paperplant/internal/monitor"
	"github.com/iceplantengineering/paperplant/internal/repository"
	"github.com/iceplantengineering/paperplant/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "paperplant-broadcaster")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting paperplant-broadcaster service")

	// the broadcaster has no useful fallback without the database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	store := repository.NewPostgresStore(db, log)

	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	err = rediscommon.Ping(pingCtx, redisClient)
	pingCancel()
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer rediscommon.Close(redisClient)

	var publisher service.Publisher
	if cfg.Broadcast.MQTTEnabled {
		mqttClient, err := mqtt.NewClient(&cfg.Broadcast.MQTT, log)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()
		publisher = mqttClient
	}

	b := service.NewBroadcaster(
		service.BroadcasterConfig{
			Interval:      cfg.Broadcast.Interval,
			Topic:         cfg.Broadcast.Topic,
			QoS:           cfg.Broadcast.MQTT.QoS,
			AlertStream:   cfg.AlertEventStream,
			ConsumerGroup: cfg.Broadcast.ConsumerGroup,
			ConsumerName:  cfg.Broadcast.ConsumerName,
		},
		monitor.NewAggregator(store, log),
		cache.NewFlowCache(cache.NewRedisKVStore(redisClient), cfg.FlowCacheTTL, log),
		publisher,
		redisClient,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := b.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errChan:
		log.Error("Broadcaster error", zap.Error(err))
	}
	cancel()

	log.Info("Service stopped")
}
