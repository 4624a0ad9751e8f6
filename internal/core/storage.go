package core

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"stablecore/internal/infra/persistence/memory"
	"stablecore/internal/infra/persistence/postgres"
	"stablecore/internal/infra/persistence/sqlite"
	"stablecore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and parameterizes the persistent store backend.
type StorageConfig struct {
	Driver      StorageDriver `env:"STABLECORE_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string        `env:"STABLECORE_SQLITE_PATH"`
	PostgresDSN string        `env:"STABLECORE_POSTGRES_DSN"`
}

// LoadStorageConfig reads the storage configuration from the environment.
func LoadStorageConfig() (StorageConfig, error) {
	var cfg StorageConfig
	if err := env.Parse(&cfg); err != nil {
		return StorageConfig{}, fmt.Errorf("parse storage env: %w", err)
	}
	return cfg, nil
}

// OpenPersistentStore constructs the backend named by cfg, wired to the
// supplied rules engine.
func OpenPersistentStore(cfg StorageConfig, engine *domain.RulesEngine) (domain.PersistentStore, error) {
	switch cfg.Driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// OpenPersistentStoreFromEnv selects a backend using environment variables,
// defaulting to sqlite when unset.
func OpenPersistentStoreFromEnv(engine *domain.RulesEngine) (domain.PersistentStore, error) {
	cfg, err := LoadStorageConfig()
	if err != nil {
		return nil, err
	}
	return OpenPersistentStore(cfg, engine)
}
