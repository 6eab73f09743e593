package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"binarymarket/handlers/feed"
	"binarymarket/ledger"
	"binarymarket/logger"
	"binarymarket/middleware"
	"binarymarket/migration"
	_ "binarymarket/migration/migrations"
	"binarymarket/seed"
	"binarymarket/server"
	"binarymarket/setup"
	"binarymarket/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	adminTokenTTL := flag.Duration("issue-admin-token", 0, "print an admin token valid for this long and exit")
	flag.Parse()

	cfg, err := setup.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	appLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer appLogger.Sync()

	if *adminTokenTTL > 0 {
		token, err := middleware.IssueAdminToken([]byte(cfg.Admin.JWTSecret), "cli", *adminTokenTTL)
		if err != nil {
			appLogger.Fatal("issue admin token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg, appLogger); err != nil {
		appLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *setup.Config, appLogger *zap.Logger) error {
	db, err := util.OpenDB(cfg.Database)
	if err != nil {
		return err
	}
	if err := migration.Run(db, appLogger); err != nil {
		return err
	}

	hub := feed.NewHub(appLogger.Named("feed"))
	defer hub.Close()

	l := ledger.New(db, appLogger.Named("ledger"), ledger.Options{
		MaxAttempts: cfg.Ledger.MaxAttempts,
		Publisher:   hub,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Markets.SeedDemo {
		if _, err := seed.Demo(ctx, db, l, cfg.Markets.DefaultLiquidity, cfg.Markets.StartingBalance, 5, 8, appLogger); err != nil {
			return err
		}
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.Burst)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Sweep()
			}
		}
	}()

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewHandler(server.Deps{
			Config:  cfg,
			DB:      db,
			Ledger:  l,
			Hub:     hub,
			Limiter: limiter,
			Logger:  appLogger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	hub.Close()
	return srv.Shutdown(shutdownCtx)
}
