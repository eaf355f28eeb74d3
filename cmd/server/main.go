package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mindchatroot "github.com/set-night/mindchat"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/handler"
	"github.com/set-night/mindchat/internal/notify"
	"github.com/set-night/mindchat/internal/provider"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/repository/sqlitestore"
	"github.com/set-night/mindchat/internal/service"
	"github.com/set-night/mindchat/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.SlogLevel())
	defer closeLog()
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Message store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open message store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Object store
	objects, filesDir, err := openObjectStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open object store", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	// Model provider; no client timeout, replies are bounded per request
	llm, err := provider.FromConfig(cfg, &http.Client{})
	if err != nil {
		slog.Error("failed to create model provider", "error", err)
		os.Exit(1)
	}

	// Ops alerts
	var notifier notify.Notifier = notify.Nop{}
	if cfg.TelegramAlertsEnabled() {
		tg, err := notify.NewTelegram(cfg.LogTelegramBotToken, cfg.LogTelegramChatID, cfg.LogTopicError, config.MaxTelegramMessageLen)
		if err != nil {
			slog.Error("failed to create telegram notifier", "error", err)
			os.Exit(1)
		}
		notifier = tg
	}

	// Initialize services
	threadService := service.NewThreadService(store)
	turnService := service.NewTurnService(store, llm, notifier, service.TurnOptions{
		SystemPrompt:   cfg.SystemPrompt,
		MaxTokens:      cfg.LLMMaxTokens,
		PersistTimeout: config.PersistTimeout,
	})
	uploadService := service.NewUploadService(store, objects)

	// Initialize handler
	h, err := handler.New(handler.Deps{
		Threads:        threadService,
		Turns:          turnService,
		Uploads:        uploadService,
		FilesDir:       filesDir,
		RequestTimeout: config.RequestTimeout,
	})
	if err != nil {
		slog.Error("failed to create handler", "error", err)
		os.Exit(1)
	}

	// Start stale turn cleanup goroutine
	go func() {
		ticker := time.NewTicker(config.StaleTurnCleanup)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := threadService.CleanupStaleTurns(context.Background(), config.ActiveTurnTTL)
				if err != nil {
					slog.Error("cleanup stale turns", "error", err)
					continue
				}
				if n > 0 {
					slog.Warn("released stale turns", "count", n)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		IdleTimeout:       config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", srv.Addr,
			"store", cfg.StoreDriver,
			"storage", cfg.StorageDriver,
			"provider", llm.Name(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("server stopped gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (service.Store, func(), error) {
	if cfg.StoreDriver == config.StoreDriverSQLite {
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, err
	}

	migrationsFS, err := fs.Sub(mindchatroot.MigrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repository.New(pool), pool.Close, nil
}

func openObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, string, error) {
	if cfg.StorageDriver == config.StorageDriverS3 {
		s, err := storage.NewS3(ctx, storage.S3Options{
			Bucket:          cfg.StorageBucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicURL:       cfg.S3PublicURL,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		return s, "", err
	}

	local, err := storage.NewLocal(cfg.LocalStorageDir, strings.TrimRight(cfg.PublicBaseURL, "/")+"/files")
	if err != nil {
		return nil, "", err
	}
	return local, local.Dir(), nil
}
