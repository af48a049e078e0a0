package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/neon-beat/neon-beat-back/internal/buzzer"
	"github.com/neon-beat/neon-beat-back/internal/config"
	"github.com/neon-beat/neon-beat-back/internal/engine"
	"github.com/neon-beat/neon-beat-back/internal/hub"
	"github.com/neon-beat/neon-beat-back/internal/persist"
	"github.com/neon-beat/neon-beat-back/internal/server"
	"github.com/neon-beat/neon-beat-back/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(stdout, cfg)

	appearance, err := config.LoadAppearance(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading appearance config: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("store ready", "backend", cfg.StoreBackend)

	hubs := hub.NewHubs()
	reg := buzzer.NewRegistry(logger)
	coord := persist.New(st, logger, cfg.PersistCooldown(), hubs.SetDegraded)
	eng := engine.New(logger, st, coord, hubs, reg, appearance)

	srv := server.New(cfg.ListenAddr(), logger, eng, hubs, reg, st)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.ListenAddr())
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	// Flush pending document writes before the process exits.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	if ferr := coord.Close(flushCtx); ferr != nil {
		logger.Error("final persistence flush failed", "error", ferr)
		if err == nil {
			err = ferr
		}
	}
	return err
}

func newLogger(stdout io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogFormat == "text" {
		return slog.New(tint.NewHandler(stdout, &tint.Options{Level: cfg.LogLevel}))
	}
	return slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		st, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return st, nil
	default:
		st, err := store.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite at %s: %w", cfg.DBPath, err)
		}
		return st, nil
	}
}
