package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codehub/internal/api/routes"
	"codehub/internal/config"
	"codehub/internal/database"
	"codehub/internal/execution"
	"codehub/internal/realtime"
	"codehub/internal/repositories/postgres"
	"codehub/internal/services"
	"codehub/internal/vfs"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting room session server")

	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	roomRepo := postgres.NewRoomRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)

	presence := services.NewPresenceService(redisClient)
	publisher := services.NewActivityPublisher(cfg.Kafka.Brokers, cfg.Kafka.ActivityTopic)
	runner := execution.NewClient(&cfg.Execution)
	fileSystem := vfs.New()

	hub := realtime.NewHub()
	coordinator := realtime.NewCoordinator(hub, roomRepo, sessionRepo, presence, publisher, fileSystem, runner)

	router := routes.NewRouter(coordinator, presence, db, cfg)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	coordinator.Stop()
	if err := publisher.Close(); err != nil {
		slog.Error("Failed to close activity publisher", "error", err)
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
