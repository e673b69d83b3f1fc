package restore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/igolaizola/rapbattle/pkg/ledger"
)

type Config struct {
	Ledger ledger.Config
	ID     string
	Dir    string
	// Output receives the restored paths. Defaults to stdout.
	Output io.Writer
}

// Run downloads the archived files of a recorded run.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.ID == "" {
		return errors.New("restore: run id is required")
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	dir := cfg.Dir
	if dir == "" {
		dir = cfg.ID
	}
	l, err := ledger.Open(ctx, &cfg.Ledger)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	defer l.Close()
	paths, err := l.Restore(ctx, cfg.ID, dir)
	for _, p := range paths {
		fmt.Fprintf(out, "Restored %s\n", p)
	}
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}
