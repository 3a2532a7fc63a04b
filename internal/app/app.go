// Package app wires configuration, storage, the ledger and the HTTP server
// together and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tixledger/tixledger/internal/bank"
	"github.com/tixledger/tixledger/internal/config"
	"github.com/tixledger/tixledger/internal/ledger"
	"github.com/tixledger/tixledger/internal/postgres"
	"github.com/tixledger/tixledger/internal/redis"
	postgresrepo "github.com/tixledger/tixledger/internal/repository/postgres"
	redisrepo "github.com/tixledger/tixledger/internal/repository/redis"
	"github.com/tixledger/tixledger/internal/service"
	"github.com/tixledger/tixledger/internal/service/query"
	"github.com/tixledger/tixledger/internal/service/submit"
	httpgin "github.com/tixledger/tixledger/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	services   *service.Services
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(context.Background(), redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	store := postgresrepo.NewStore(pgxPool)
	if err := store.EnsureSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewEventsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "tixledger:v1:rl", 30, 1*time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 24*time.Hour)

	bk := bank.NewMemoryBank()
	ldg := ledger.New(bk, ledger.Config{
		Admin:          cfg.Ledger.Admin,
		MaxPerPurchase: cfg.Ledger.MaxPerPurchase,
	})

	services := service.NewServices(
		ldg, bk, store.Journal(), cache, pubsub, limiter, logger,
		service.Config{
			Submit: submit.Config{QueueSize: cfg.Ledger.QueueSize},
			Query:  query.Config{},
		},
	)

	router := httpgin.NewRouter(services, idempotencyStore, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		services: services,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Rebuild in-memory state before accepting traffic.
	if err := a.services.Submit.Replay(ctx); err != nil {
		return fmt.Errorf("failed to replay journal: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Single applier: the serialization point for all mutations.
	g.Go(func() error {
		err := a.services.Submit.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
