package timeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/igolaizola/rapbattle/pkg/timeline"
)

type Config struct {
	Metadata string
	CSV      string
	// Output receives the timeline. Defaults to stdout.
	Output io.Writer
}

// Run prints the composition plan timeline of a saved metadata file.
func Run(ctx context.Context, cfg *Config) error {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	b, err := os.ReadFile(cfg.Metadata)
	if err != nil {
		return fmt.Errorf("timeline: couldn't read metadata: %w", err)
	}
	entries, err := timeline.FromMetadata(b)
	if err != nil {
		return err
	}
	if entries == nil {
		log.Printf("timeline: no composition plan in %s\n", cfg.Metadata)
		return nil
	}
	if err := timeline.Print(out, entries); err != nil {
		return fmt.Errorf("timeline: couldn't print: %w", err)
	}
	if cfg.CSV == "" {
		return nil
	}
	csv, err := timeline.CSV(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfg.CSV, csv, 0644); err != nil {
		return fmt.Errorf("timeline: couldn't write csv: %w", err)
	}
	return nil
}
