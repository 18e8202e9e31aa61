package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/bolingo/bolingo-backend/internal/crypto"
)

// Credential store drivers.
const (
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

const devSecret = "dev-secret-change-in-production"

// Config is loaded once at startup and not modified afterwards.
type Config struct {
	Port     string
	Env      string
	LogLevel slog.Level

	StoreDriver   string
	DatabaseDSN   string
	MongoURI      string
	MongoDatabase string
	Migrate       bool

	JWTSecret string

	PasswordHashAlgo string
	PasswordHashCost int
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "3000"),
		Env:              getEnv("ENV", "development"),
		DatabaseDSN:      os.Getenv("DATABASE_DSN"),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDatabase:    getEnv("MONGO_DATABASE", "bolingo"),
		JWTSecret:        getEnv("JWT_SECRET", devSecret),
		PasswordHashAlgo: getEnv("PASSWORD_HASH_ALGO", crypto.AlgorithmBcrypt),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}

	if cfg.Migrate, err = strconv.ParseBool(getEnv("MIGRATE", "true")); err != nil {
		return Config{}, fmt.Errorf("MIGRATE: %w", err)
	}

	if v := os.Getenv("PASSWORD_HASH_COST"); v != "" {
		if cfg.PasswordHashCost, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("PASSWORD_HASH_COST: %w", err)
		}
	}
	// Fail at startup rather than on the first signup.
	if _, err := crypto.NewHasher(cfg.PasswordHashAlgo, cfg.PasswordHashCost); err != nil {
		return Config{}, fmt.Errorf("password hashing: %w", err)
	}

	cfg.StoreDriver = os.Getenv("STORE_DRIVER")
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreMemory
		if cfg.MongoURI != "" {
			cfg.StoreDriver = StoreMongo
		}
	}
	switch cfg.StoreDriver {
	case StoreMySQL, StorePostgres:
		if cfg.DatabaseDSN == "" {
			return Config{}, fmt.Errorf("DATABASE_DSN is required for store %q", cfg.StoreDriver)
		}
	case StoreMongo:
		if cfg.MongoURI == "" {
			return Config{}, errors.New("MONGO_URI is required for store \"mongo\"")
		}
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.Env == "production" {
		if cfg.JWTSecret == devSecret {
			return Config{}, errors.New("JWT_SECRET must be set in production environment")
		}
		if cfg.StoreDriver == StoreMemory {
			return Config{}, errors.New("memory store is not allowed in production environment")
		}
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in the production environment.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
