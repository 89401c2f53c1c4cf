package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/http/router"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/implementations"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/memory"
	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/tenmo-ledger/src/internal/config"
	"github.com/api-sage/tenmo-ledger/src/internal/logger"
	"github.com/api-sage/tenmo-ledger/src/internal/usecase/services"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const (
	storePostgres = "postgres"
	storeMemory   = "memory"
)

type serveOptions struct {
	store          string
	skipMigrations bool
	seeds          []string
}

func newServeCommand() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.store != storePostgres && opts.store != storeMemory {
				return fmt.Errorf("--store must be %q or %q", storePostgres, storeMemory)
			}
			if len(opts.seeds) > 0 && opts.store != storeMemory {
				return fmt.Errorf("--seed requires --store=%s; use the provision command for postgres", storeMemory)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app := fx.New(
				fx.WithLogger(func() fxevent.Logger {
					return &fxevent.ZapLogger{Logger: logger.Zap()}
				}),
				fx.Supply(cfg, opts),
				fx.Provide(
					newStores,
					newRedisClient,
					newIdempotency,
					services.NewTransferService,
					services.NewAccountService,
					services.NewUserService,
					newHandler,
					newHTTPServer,
				),
				fx.Invoke(func(*http.Server) {}),
			)
			if err := app.Err(); err != nil {
				return err
			}

			app.Run()
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.store, "store", storePostgres, "ledger store: postgres or memory")
	cmd.Flags().BoolVar(&opts.skipMigrations, "skip-migrations", false, "do not apply migrations on start")
	cmd.Flags().StringArrayVar(&opts.seeds, "seed", nil, "memory store user as username:password[:balance], repeatable")

	return cmd
}

type stores struct {
	fx.Out

	UnitOfWork repo_interfaces.UnitOfWork
	Accounts   repo_interfaces.AccountRepository
	Transfers  repo_interfaces.TransferRepository
	Users      repo_interfaces.UserRepository
	Pinger     controller.Pinger
}

func newStores(lc fx.Lifecycle, cfg config.Config, opts serveOptions) (stores, error) {
	if opts.store == storeMemory {
		logger.Warn("serving from the in-memory store; data is lost on exit", nil)
		store := memory.NewStore()
		if err := seedUsers(context.Background(), store.Users(), opts.seeds, cfg.OpeningBalance); err != nil {
			return stores{}, err
		}
		if len(opts.seeds) == 0 {
			logger.Warn("in-memory store has no users; pass --seed to create some", nil)
		}
		return stores{
			UnitOfWork: store,
			Accounts:   store.Accounts(),
			Transfers:  store.Transfers(),
			Users:      store.Users(),
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := implementations.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return stores{}, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})

	if !opts.skipMigrations {
		if err := migrate(ctx, db, cfg); err != nil {
			return stores{}, err
		}
	}

	return stores{
		UnitOfWork: implementations.NewUnitOfWork(db, implementations.BreakerSettings{
			MaxFailures: cfg.BreakerMaxFailures,
			Timeout:     cfg.BreakerTimeout,
		}),
		Accounts:  implementations.NewAccountRepository(db),
		Transfers: implementations.NewTransferRepository(db),
		Users:     implementations.NewUserRepository(db),
		Pinger:    db,
	}, nil
}

// newRedisClient returns nil when no Redis address is configured.
func newRedisClient(lc fx.Lifecycle, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		logger.Info("idempotency disabled: REDIS_ADDR is empty", nil)
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newIdempotency(client *redis.Client, cfg config.Config) *middleware.Idempotency {
	if client == nil {
		return nil
	}
	return middleware.NewIdempotency(client, cfg.IdempotencyTTL)
}

type handlerParams struct {
	fx.In

	Transfers   *services.TransferService
	Accounts    *services.AccountService
	Users       *services.UserService
	Idempotency *middleware.Idempotency
	Pinger      controller.Pinger
}

func newHandler(p handlerParams) http.Handler {
	return router.New(
		middleware.BasicAuth(p.Users),
		controller.NewHealthController(p.Pinger),
		controller.NewAccountController(p.Accounts),
		controller.NewUserController(p.Users),
		controller.NewTransferController(p.Transfers, p.Accounts, p.Idempotency.Handler),
	)
}

func newHTTPServer(lc fx.Lifecycle, cfg config.Config, handler http.Handler) *http.Server {
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", server.Addr, err)
			}

			logger.Info("http server listening", logger.Fields{"addr": server.Addr})
			go func() {
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server stopped", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("http server shutting down", nil)
			return server.Shutdown(ctx)
		},
	})

	return server
}
