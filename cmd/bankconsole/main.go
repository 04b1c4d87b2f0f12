package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/josh-kwaku/bank-ledger/internal/config"
	"github.com/josh-kwaku/bank-ledger/internal/console"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/josh-kwaku/bank-ledger/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("bankconsole", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer cleanup()

	led := ledger.New(ctx, st, slog.Default())

	if err := console.New(led, os.Stdin, os.Stdout).Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("console exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("session ended")
}

func openStore(ctx context.Context, cfg *config.Config) (ledger.Store, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		db, err := store.Connect(ctx, cfg.DatabaseURL, store.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
			ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		})
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(db), func() { db.Close() }, nil
	case config.StoreFile:
		fs, err := store.NewFile(cfg.DataFile)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
