package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-api/internal/auth"
	"expense-api/internal/config"
	"expense-api/internal/handlers"
	"expense-api/internal/log"
	"expense-api/internal/service"
	"expense-api/internal/session"
	"expense-api/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func newLogger(cfg *config.Config, out io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    out,
	}), nil
}

// run serves until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	h, cleanup, err := buildHandlers(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           setupRouter(h, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server",
			log.FieldOperation, log.OpStartup,
			"addr", srv.Addr,
			"session_backend", cfg.SessionBackend,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildHandlers opens storage and the session backend and wires the
// services. The returned cleanup releases both.
func buildHandlers(ctx context.Context, cfg *config.Config, logger *log.Logger) (*handlers.Handlers, func(), error) {
	if err := auth.SetCost(cfg.BcryptCost); err != nil {
		return nil, nil, err
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	storeLogger := logger.WithComponent(log.ComponentStorage)
	if n, err := db.CleanExpiredSessions(ctx); err != nil {
		storeLogger.Warn("Failed to clean expired sessions", log.FieldError, err)
	} else if n > 0 {
		storeLogger.Info("Cleaned expired sessions", "count", n)
	}

	store, closeStore, err := sessionStore(ctx, cfg, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close session store", log.FieldError, err)
		}
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database", log.FieldError, err)
		}
	}

	authSvc := service.NewAuthService(db, session.NewManager(store, cfg.SessionTTL))
	expenseSvc := service.NewExpenseService(db, db)
	return handlers.NewHandlers(authSvc, expenseSvc, cfg.SecureCookie), cleanup, nil
}

// sessionStore selects the configured session backend. The SQLite store is
// the database itself.
func sessionStore(ctx context.Context, cfg *config.Config, db *storage.DB) (session.Store, func() error, error) {
	if cfg.SessionBackend != "redis" {
		return db, func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return session.NewRedisStore(client, db), client.Close, nil
}

func setupRouter(h *handlers.Handlers, cfg *config.Config, logger *log.Logger) *gin.Engine {
	return handlers.NewRouter(h, handlers.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		StaticDir:   cfg.StaticDir,
		Logger:      logger,
	})
}
