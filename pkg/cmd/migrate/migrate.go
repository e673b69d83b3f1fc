package migrate

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/igolaizola/rapbattle/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string
}

// Run creates or upgrades the run ledger schema.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.DBType == "" {
		return errors.New("migrate: db type is required")
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("migrate: couldn't create: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't start: %w", err)
	}
	defer func() { _ = store.Stop() }()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't migrate: %w", err)
	}
	log.Printf("migrate: %s schema is up to date\n", cfg.DBType)
	return nil
}
