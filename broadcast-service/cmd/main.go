package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/The-Membrane/brane-auction/broadcast-service/internal/redis"
	wsHandler "github.com/The-Membrane/brane-auction/broadcast-service/internal/websocket"
	"github.com/The-Membrane/brane-auction/shared/config"
)

func main() {
	log := config.SetupLogging("broadcast-service")
	log.Info("Starting Broadcast Service...")

	cfg := loadConfig()

	subscriber, err := redisClient.NewSubscriber(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer subscriber.Close()
	log.WithField("addr", cfg.RedisAddr).Info("Connected to Redis")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// every event kind is published on its own channel under the prefix
	if err := subscriber.SubscribeToPattern(ctx, redisClient.ChannelPrefix+"*"); err != nil {
		log.WithError(err).Fatal("Failed to subscribe to Redis channels")
	}
	log.Info("Subscribed to auction events")

	wsManager := wsHandler.NewManager()
	go wsManager.Run()
	defer wsManager.Stop()

	messageChan := make(chan *redisClient.Message, 256)

	go func() {
		if err := subscriber.Listen(ctx, messageChan); err != nil && err != context.Canceled {
			log.WithError(err).Error("Redis listener stopped")
		}
	}()

	// Redis Pub/Sub -> WebSocket
	go func() {
		for msg := range messageChan {
			if msg.Topic == "" {
				continue
			}
			wsManager.Broadcast(msg.Topic, []byte(msg.Payload))
		}
	}()

	handler := wsHandler.NewHandler(wsManager)
	router := handler.SetupRoutes()

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ServerAddr).Info("Broadcast Service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped gracefully")
}

// Config holds application configuration
type Config struct {
	ServerAddr    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// loadConfig loads configuration from environment variables
func loadConfig() *Config {
	return &Config{
		ServerAddr:    config.GetEnv("SERVER_ADDR", ":8081"),
		RedisAddr:     config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: config.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       config.GetEnvInt("REDIS_DB", 0),
	}
}
