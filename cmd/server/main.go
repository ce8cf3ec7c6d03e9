package main

// @title           Whisper API
// @version         1.0
// @description     End-to-end encrypted chat backend.
// @BasePath        /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"

	"whisper-server/internal/adapters/kafka"
	"whisper-server/internal/api/routes"
	"whisper-server/internal/config"
	"whisper-server/internal/database"
	"whisper-server/internal/repositories/postgres"
	"whisper-server/internal/services"
	"whisper-server/internal/storage"
	"whisper-server/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting whisper server")

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var producer sarama.SyncProducer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewSyncProducer(cfg.Kafka.Brokers)
		if err != nil {
			slog.Error("failed to create kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
	}

	var objectStore *storage.ObjectStore
	if cfg.Minio.Enabled {
		objectStore, err = storage.NewObjectStore(context.Background(), storage.Config{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			slog.Error("failed to connect to object store", "error", err)
			os.Exit(1)
		}
	}

	userRepo := postgres.NewUserRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	channelRepo := postgres.NewChannelRepository(db)
	serverRepo := postgres.NewServerRepository(db)

	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiry)
	presenceService := services.NewPresenceService(redisClient)
	chatService := services.NewChatService(messageRepo, userRepo, producer, cfg.Kafka.Topic)
	channelService := services.NewChannelService(channelRepo, serverRepo, messageRepo)

	// Realtime wiring: explicitly constructed, injected into every
	// connection handler, no ambient globals.
	rooms := ws.NewRooms()
	registry := ws.NewRegistry(rooms, presenceService)
	wsProto := ws.NewHandler(registry, rooms, chatService, chatService, channelService)

	router := routes.NewRouter(db, authService, presenceService, registry, wsProto, objectStore)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
