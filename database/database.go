package database

import (
	"context"
	"fmt"

	"github.com/sagarc03/mdedge"
	"github.com/sagarc03/mdedge/database/postgres"
	"github.com/sagarc03/mdedge/database/sqlite"
)

// Config selects and configures a metadata backend.
type Config struct {
	// Type is "sqlite" or "postgres".
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=sqlite postgres"`
	// DSN is the data source name (file path or connection string).
	DSN    string        `mapstructure:"dsn" yaml:"dsn" validate:"required"`
	Tables mdedge.Tables `mapstructure:"tables" yaml:"tables"`
}

// Database is a metadata backend.
type Database interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Validate(ctx context.Context) error
	GetRepo() mdedge.MetaDataRepo
	Close() error
}

// Connect opens the backend named by cfg.Type. It does not migrate; callers
// decide between Migrate and Validate.
func Connect(ctx context.Context, cfg Config) (Database, error) {
	switch cfg.Type {
	case "sqlite":
		return sqlite.Connect(ctx, cfg.DSN, cfg.Tables)
	case "postgres":
		return postgres.Connect(ctx, cfg.DSN, cfg.Tables)
	default:
		return nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
	}
}

// Open connects, migrates and validates in one step.
func Open(ctx context.Context, cfg Config) (Database, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Type, err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", cfg.Type, err)
	}
	if err := db.Validate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", cfg.Type, err)
	}

	return db, nil
}
