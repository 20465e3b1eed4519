// cmd/historian/main.go is an asynchronous historian service that pops ledger
// events from a Redis queue and persists them to PostgreSQL in batches.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/pokerbets/internal/cache"
	"github.com/jason-s-yu/pokerbets/internal/config"
	"github.com/jason-s-yu/pokerbets/internal/database"
	"github.com/jason-s-yu/pokerbets/internal/logging"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.ConnectDB(ctx, database.ConnString()); err != nil {
		logger.Fatal(err)
	}
	defer database.DB.Close()
	if err := database.EnsureSchema(ctx, database.DB); err != nil {
		logger.Fatal(err)
	}

	addr := cfg.Redis.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	if err := cache.ConnectRedis(ctx, addr, cfg.Redis.DB); err != nil {
		logger.Fatal(err)
	}
	defer cache.Rdb.Close()

	hs := NewHistorian(cfg.Historian, cfg.Redis.Queue, &redisSource{client: cache.Rdb, queue: cfg.Redis.Queue}, pgSink{pool: database.DB}, logger)
	logger.Info("pokerbets historian started")
	hs.Run(ctx)
	logger.Info("historian shutdown complete")
}
