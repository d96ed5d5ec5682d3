package main

import (
	"context"
	"log"
	"time"

	"poll-service/config"
	"poll-service/internal/commands"
	"poll-service/internal/events"
	"poll-service/internal/handler"
	"poll-service/internal/middleware"
	"poll-service/internal/redis"
	"poll-service/internal/repository"
	"poll-service/internal/server"
	"poll-service/internal/services"
	"poll-service/internal/storage"
	"poll-service/internal/websocket"
	"poll-service/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppEnv)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := repository.NewPollStore()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	bus := events.NewEventBus(nil)

	var (
		limiter     middleware.VoteLimiter
		limitsReset handler.VoteCounterResetter
		health      server.HealthCheck
	)

	if cfg.RedisEnabled() {
		client := redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()

		if err := redis.Ping(ctx, client, 5*time.Second); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		l.Infof("Connected to Redis at %s:%s", cfg.RedisHost, cfg.RedisPort)

		// every replica publishes to Redis and the bridge feeds the local hub
		bus.AddTransport(redis.NewPublisher(client))
		bridge := websocket.NewRedisBridge(redis.NewSubscriber(client), hub)
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				l.Errorf("Redis bridge stopped: %s", err)
			}
		}()

		rateLimiter := redis.NewRateLimiter(client, redis.RateLimitConfig{
			VoteLimit:  cfg.VoteRateLimit,
			VoteWindow: cfg.VoteRateWindow,
		})
		limiter = rateLimiter
		limitsReset = rateLimiter
		health = func(ctx context.Context) error {
			return redis.Ping(ctx, client, 2*time.Second)
		}
	} else {
		bus.AddTransport(hub)
	}

	if cfg.RabbitMQEnabled() {
		amqpPublisher, err := events.DialAMQP(cfg.RabbitMQURL, cfg.RabbitMQExchange, 5, 2*time.Second, l)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer amqpPublisher.Close()
		bus.AddTransport(amqpPublisher)
		l.Infof("Publishing poll events to exchange %s", cfg.RabbitMQExchange)
	}

	var archiver services.Archiver
	if cfg.ArchiveEnabled() {
		s3Archiver, err := storage.NewArchiver(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
		})
		if err != nil {
			log.Fatalf("Failed to create S3 archiver: %v", err)
		}
		archiver = s3Archiver
		l.Infof("Archiving deleted polls to bucket %s", cfg.S3Bucket)
	}

	pollService := services.NewPollService(store, commands.NewBus(), bus, archiver, l)

	watcher := services.NewClosureWatcher(store, bus, cfg.CloseWatchInterval, l)
	watcher.Start()
	defer watcher.Stop()

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Poll:      handler.NewPollHandler(pollService, limitsReset),
		WebSocket: websocket.NewHandler(hub, pollService, l),
	}, limiter, health)

	if err := srv.Start(ctx); err != nil {
		l.Errorf("Server exited with error: %s", err)
	}
}
