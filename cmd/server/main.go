// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/pokerbets/internal/auth"
	"github.com/jason-s-yu/pokerbets/internal/cache"
	"github.com/jason-s-yu/pokerbets/internal/config"
	"github.com/jason-s-yu/pokerbets/internal/database"
	"github.com/jason-s-yu/pokerbets/internal/events"
	"github.com/jason-s-yu/pokerbets/internal/handlers"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
	"github.com/jason-s-yu/pokerbets/internal/logging"
	"github.com/jason-s-yu/pokerbets/internal/metrics"
	"github.com/jason-s-yu/pokerbets/internal/store"
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
	logrus.SetLevel(logger.GetLevel())
	logrus.SetFormatter(logger.Formatter)
	logrus.SetOutput(logger.Out)

	if cfg.Auth.PrivateKeyPath != "" {
		if err := auth.InitFromPath(cfg.Auth.PrivateKeyPath, cfg.Auth.PublicKeyPath); err != nil {
			logger.Fatalf("auth: %v", err)
		}
	} else {
		logger.Warn("no auth key configured, sessions will not survive a restart")
		auth.Init()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer st.Close()

	hub := events.NewHub(64)
	sinks := ledger.MultiSink{hub}
	if cfg.Redis.Addr != "" {
		if err := cache.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.DB); err != nil {
			logger.Fatalf("redis: %v", err)
		}
		defer cache.Rdb.Close()
		sinks = append(sinks, cache.NewPublisher(cache.Rdb, cfg.Redis.Queue))
	} else if cfg.Store.Backend == "postgres" {
		sinks = append(sinks, database.EventLog{Pool: database.DB})
	}

	reg := metrics.New()
	l := ledger.New(st, cfg.LedgerOptions(),
		ledger.WithEvents(sinks),
		ledger.WithLogger(logger),
		ledger.WithMetrics(reg),
	)

	api := handlers.NewAPIServer(l, hub, reg, logger, !cfg.IsProduction())
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.WithFields(logrus.Fields{
		"addr":    srv.Addr,
		"backend": cfg.Store.Backend,
		"env":     cfg.Env,
	}).Info("pokerbets server running")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "leveldb":
		return store.OpenLevelDB(cfg.Store.LevelDBPath)
	case "postgres":
		if err := database.ConnectDB(ctx, database.ConnString()); err != nil {
			return nil, err
		}
		if err := database.EnsureSchema(ctx, database.DB); err != nil {
			return nil, err
		}
		return database.NewPostgresStore(database.DB), nil
	default:
		return store.NewMemoryStore(), nil
	}
}
