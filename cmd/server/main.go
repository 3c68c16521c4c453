package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jimdaga/sop-studio/internal/auth"
	"github.com/jimdaga/sop-studio/internal/config"
	"github.com/jimdaga/sop-studio/internal/database"
	"github.com/jimdaga/sop-studio/internal/generator"
	"github.com/jimdaga/sop-studio/internal/health"
	"github.com/jimdaga/sop-studio/internal/logging"
	"github.com/jimdaga/sop-studio/internal/models"
	"github.com/jimdaga/sop-studio/internal/prompts"
	"github.com/jimdaga/sop-studio/internal/quota"
	"github.com/jimdaga/sop-studio/internal/server"
	"github.com/jimdaga/sop-studio/internal/store"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	cfg.LogWarnings(logger)

	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			return err
		}
	} else if cfg.IsProduction() {
		return errors.New("ENCRYPTION_KEY is required in production")
	} else {
		logger.Warn("ENCRYPTION_KEY not set; OAuth tokens and passport numbers are stored in plaintext")
	}

	var (
		st     store.Store
		db     *gorm.DB
		checks []health.Check
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Init(cfg.DatabaseURL, cfg.LogLevel)
		if err != nil {
			return err
		}
		defer func() {
			if err := database.Close(db); err != nil {
				logger.Error("Failed to close database", "error", err)
			}
		}()

		if err := database.RunMigrations(db); err != nil {
			return err
		}
		if cfg.SeedDevData && !cfg.IsProduction() {
			if err := database.SeedDevData(db); err != nil {
				return err
			}
		}
		st = store.NewGormStore(db)
		checks = append(checks, health.Check{
			Name: "database",
			Ping: func(ctx context.Context) error { return database.Ping(ctx, db) },
		})
	} else {
		if cfg.IsProduction() {
			return errors.New("DATABASE_URL is required in production")
		}
		logger.Warn("DATABASE_URL not set; using in-memory store, data is lost on restart")
		st = store.NewMemoryStore()
	}

	guard, err := quota.NewGuard(cfg.RedisURL, quota.Options{
		Limit:   cfg.GenerationRateLimit,
		Window:  cfg.GenerationRateWindow,
		LockTTL: cfg.AITimeout + 30*time.Second,
	})
	if err != nil {
		return err
	}
	if guard != nil {
		defer guard.Close()
		checks = append(checks, health.Check{Name: "redis", Ping: guard.Ping})
	} else {
		logger.Warn("REDIS_URL not set; generation rate limiting and per-user locking are disabled")
	}

	gen, err := generator.New(generator.Options{
		Provider:    cfg.AIProvider,
		APIKey:      cfg.AIAPIKey,
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		Temperature: cfg.AITemperature,
		Timeout:     cfg.AITimeout,
	})
	if err != nil {
		return err
	}

	registry, err := prompts.Default()
	if err != nil {
		return err
	}

	auth.InitProviders(cfg, logger)

	router := server.NewRouter(server.Deps{
		Config:      cfg,
		Logger:      logger,
		Store:       st,
		Generator:   gen,
		Prompts:     registry,
		Guard:       guard,
		ReadyChecks: checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// generation blocks for up to AITimeout
		WriteTimeout: cfg.AITimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"ai_provider", cfg.AIProvider,
			"ai_model", gen.Model(),
			"persistent", db != nil,
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-quit:
		logger.Info("Shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		logger.Info("Server stopped gracefully")
	}
	return nil
}
