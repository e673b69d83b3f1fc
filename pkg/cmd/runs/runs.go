package runs

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/igolaizola/rapbattle/pkg/ledger"
)

type Config struct {
	Ledger ledger.Config
	Kind   string
	Page   int
	Limit  int
	// Forget removes this run from the database instead of listing.
	Forget string
	// Output receives the table. Defaults to stdout.
	Output io.Writer
}

// Run lists the recorded pipeline runs, newest first.
func Run(ctx context.Context, cfg *Config) error {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 20
	}
	l, err := ledger.Open(ctx, &cfg.Ledger)
	if err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	defer l.Close()
	if cfg.Forget != "" {
		if err := l.Forget(ctx, cfg.Forget); err != nil {
			return fmt.Errorf("runs: %w", err)
		}
		fmt.Fprintf(out, "Forgot run %s\n", cfg.Forget)
		return nil
	}
	rs, err := l.Runs(ctx, cfg.Page, limit, cfg.Kind)
	if err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTATUS\tCREATED\tDURATION\tSPLIT\tOUTPUT\tERROR")
	for _, r := range rs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dms\t%dms\t%s\t%s\n",
			r.ID, r.Kind, r.Status, r.CreatedAt.Format(time.DateTime), r.DurationMs, r.SplitMs, r.Output, r.Error)
	}
	return w.Flush()
}
