package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"stockchat/internal/auth"
	"stockchat/internal/broker"
	"stockchat/internal/chat"
	"stockchat/internal/config"
	"stockchat/internal/domain"
	"stockchat/internal/logging"
	"stockchat/internal/postgres"
	"stockchat/internal/redis"
	"stockchat/internal/server"
	"stockchat/internal/stockbot"
	"stockchat/internal/stooq"
	"stockchat/internal/websocket"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("Redis not configured, room presence disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, hub *websocket.Hub, stopWorker context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopWorker()
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	var presence domain.PresenceStore = redis.NoopPresence{}
	if redisClient != nil {
		presence = redis.NewPresenceStore(redisClient)
	}

	// Repositories
	userRepo := postgres.NewUserRepo(pool)
	roomRepo := postgres.NewRoomRepo(pool)
	messageRepo := postgres.NewMessageRepo(pool)

	// Services
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, clock)
	authSvc := auth.NewService(userRepo, tokens)
	chatSvc := chat.NewService(roomRepo, messageRepo)

	// Stock bot pipeline: one broker, one worker, shared by every connection
	msgBroker := broker.New()
	quotes := stooq.NewClient(cfg.StooqBaseURL)
	worker := stockbot.NewWorker(msgBroker, quotes, cfg.StockWorkerConcurrency, clock)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go worker.Run(workerCtx)

	hub := websocket.NewHub()
	dispatcher := chat.NewDispatcher(chatSvc, msgBroker, hub, presence, clock,
		rate.Every(cfg.StockRateInterval), cfg.StockRateBurst)

	srv := server.NewServer(cfg, authSvc, tokens, chatSvc, dispatcher, hub, pool, redisClient)

	done := runGracefulShutdown(srv, hub, stopWorker)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
