package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bolingo/bolingo-backend/internal/config"
	"github.com/bolingo/bolingo-backend/internal/crypto"
	"github.com/bolingo/bolingo-backend/internal/handler"
	"github.com/bolingo/bolingo-backend/internal/repository"
	"github.com/bolingo/bolingo-backend/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, closeStore, err := openUserRepository(ctx, cfg)
	if err != nil {
		slog.Error("credential store unavailable", "store", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	hasher, err := crypto.NewHasher(cfg.PasswordHashAlgo, cfg.PasswordHashCost)
	if err != nil {
		slog.Error("password hasher setup failed", "error", err)
		os.Exit(1)
	}

	tokens, err := crypto.NewTokenIssuer(cfg.JWTSecret, nil)
	if err != nil {
		slog.Error("token issuer setup failed", "error", err)
		os.Exit(1)
	}

	authService := service.NewAuthService(users, hasher, tokens)
	authHandler := handler.NewAuthHandler(authService)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(authHandler, tokens),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openUserRepository connects the configured credential store. The returned
// func releases its connections.
func openUserRepository(ctx context.Context, cfg config.Config) (service.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMySQL, config.StorePostgres:
		driver := repository.DriverMySQL
		if cfg.StoreDriver == config.StorePostgres {
			driver = repository.DriverPostgres
		}

		db, err := repository.NewDB(ctx, driver, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(); err != nil {
				slog.Warn("closing database", "error", err)
			}
		}

		if cfg.Migrate {
			if err := repository.Migrate(ctx, db, driver); err != nil {
				closeDB()
				return nil, nil, err
			}
		}

		if driver == repository.DriverPostgres {
			return repository.NewPostgresUserRepository(db), closeDB, nil
		}
		return repository.NewUserRepository(db), closeDB, nil

	case config.StoreMongo:
		client, err := repository.NewMongoClient(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		closeClient := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				slog.Warn("disconnecting mongodb", "error", err)
			}
		}

		users, err := repository.NewMongoUserRepository(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			closeClient()
			return nil, nil, err
		}
		slog.Info("MongoDB connected", "database", cfg.MongoDatabase)
		return users, closeClient, nil

	case config.StoreMemory:
		slog.Warn("using in-memory credential store, accounts are lost on restart")
		return repository.NewMemoryUserRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.StoreDriver)
	}
}
