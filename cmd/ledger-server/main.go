package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/contacorrente/ledger/app/httpapi"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%s: %v", serviceName, err)
	}
}

//nolint:funlen
func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}

		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs, err := newObservability(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("set up observability: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if shutdownErr := obs.shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("flushing telemetry failed", "error", shutdownErr.Error())
		}
	}()

	store, closeStore, err := openStore(ctx, cfg, logger, obs.storeOptions()...)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer closeStore()

	if cfg.Seed {
		if seedErr := store.SeedAccounts(ctx, demoAccounts()...); seedErr != nil {
			return fmt.Errorf("seed accounts: %w", seedErr)
		}

		logger.Info("demo accounts seeded", "count", len(demoAccounts()))
	}

	built, err := buildHandlers(cfg, store, obs)
	if err != nil {
		return fmt.Errorf("build handlers: %w", err)
	}

	defer func() {
		if closeErr := built.close(); closeErr != nil {
			logger.Warn("closing the event publisher failed", "error", closeErr.Error())
		}
	}()

	router, err := httpapi.NewRouter(httpapi.Dependencies{
		Logger:         logger,
		PostMovement:   built.postMovement,
		AccountBalance: built.accountBalance,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	server := httpapi.NewServer(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("ledger server listening",
			"addr", cfg.Addr,
			"store", cfg.Store,
			"observability", cfg.ObservabilityEnabled(),
			"publishing", cfg.PublishingEnabled(),
		)

		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		logger.Info("shutting down, waiting for in-flight requests", "timeout", cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
