package ledger

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/igolaizola/rapbattle/pkg/filestore"
	"github.com/igolaizola/rapbattle/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string
	FSType string
	FSConn string
	Proxy  string
}

// Ledger records pipeline runs in the database and archives their files.
// Both parts are optional, a zero config gives a ledger that only assigns ids.
type Ledger struct {
	store *storage.Store
	fs    *filestore.Store
}

func Open(ctx context.Context, cfg *Config) (*Ledger, error) {
	store, err := storage.Open(ctx, cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("ledger: couldn't open database: %w", err)
	}
	fs, err := filestore.New(cfg.FSType, cfg.FSConn, cfg.Proxy, cfg.Debug, store)
	if err != nil {
		if store != nil {
			_ = store.Stop()
		}
		return nil, fmt.Errorf("ledger: couldn't create file store: %w", err)
	}
	return &Ledger{store: store, fs: fs}, nil
}

func (l *Ledger) Close() {
	if l.store == nil {
		return
	}
	if err := l.store.Stop(); err != nil {
		log.Printf("ledger: couldn't stop database: %v\n", err)
	}
}

// Begin assigns an id to the run and stores it as running.
func (l *Ledger) Begin(ctx context.Context, run *storage.Run) {
	if run.ID == "" {
		run.ID = storage.NewID()
	}
	run.Status = storage.StatusRunning
	if l.store == nil {
		return
	}
	if err := l.store.SetRun(ctx, run); err != nil {
		log.Printf("ledger: couldn't save run %s: %v\n", run.ID, err)
	}
}

// Finish archives the files that exist on disk and stores the final status
// of the run. Ledger failures are logged and never replace the run error.
func (l *Ledger) Finish(ctx context.Context, run *storage.Run, runErr error, files ...string) {
	run.Status = storage.StatusDone
	run.Error = ""
	if runErr != nil {
		run.Status = storage.StatusFailed
		run.Error = runErr.Error()
	}
	if l.fs != nil {
		var existing []string
		for _, f := range files {
			if f == "" {
				continue
			}
			if _, err := os.Stat(f); err == nil {
				existing = append(existing, f)
			}
		}
		names, err := l.fs.Archive(ctx, run.ID, existing...)
		if err != nil {
			log.Printf("ledger: %v\n", err)
		}
		var bases []string
		for _, n := range names {
			log.Printf("ledger: archived %s\n", n)
			bases = append(bases, path.Base(n))
		}
		run.Artifacts = strings.Join(bases, "\n")
	}
	if l.store == nil {
		return
	}
	if err := l.store.SetRun(ctx, run); err != nil {
		log.Printf("ledger: couldn't save run %s: %v\n", run.ID, err)
	}
}

// Runs lists the most recent runs. It fails when no database is configured.
func (l *Ledger) Runs(ctx context.Context, page, size int, kind string) ([]*storage.Run, error) {
	if l.store == nil {
		return nil, fmt.Errorf("ledger: no database configured")
	}
	var filters []storage.Filter
	if kind != "" {
		filters = append(filters, storage.Where("kind = ?", kind))
	}
	runs, err := l.store.ListRuns(ctx, page, size, "id desc", filters...)
	if err != nil {
		return nil, fmt.Errorf("ledger: couldn't list runs: %w", err)
	}
	return runs, nil
}

// Restore downloads the archived files of a run into dir and returns their
// local paths.
func (l *Ledger) Restore(ctx context.Context, id, dir string) ([]string, error) {
	if l.store == nil || l.fs == nil {
		return nil, fmt.Errorf("ledger: restoring requires a database and a file store")
	}
	run, err := l.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ledger: couldn't get run %s: %w", id, err)
	}
	names := run.ArtifactNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("ledger: run %s has no archived files", id)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ledger: couldn't create %s: %w", dir, err)
	}
	var paths []string
	for _, n := range names {
		dst := filepath.Join(dir, n)
		if err := l.fs.Restore(ctx, id, n, dst); err != nil {
			return paths, fmt.Errorf("ledger: %w", err)
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

// Forget removes a run and its file references from the database. Archived
// objects are left in the file store.
func (l *Ledger) Forget(ctx context.Context, id string) error {
	if l.store == nil {
		return fmt.Errorf("ledger: no database configured")
	}
	run, err := l.store.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("ledger: couldn't get run %s: %w", id, err)
	}
	for _, n := range run.ArtifactNames() {
		if err := l.store.DeleteFile(ctx, filestore.Name(id, n)); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
	}
	if err := l.store.DeleteRun(ctx, id); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	return nil
}
