package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/igolaizola/rapbattle/pkg/storage"
)

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	l, err := Open(ctx, &Config{})
	if err != nil {
		t.Fatalf("Open() err = %v; want nil", err)
	}
	defer l.Close()

	run := &storage.Run{Kind: storage.KindGenerate}
	l.Begin(ctx, run)
	if run.ID == "" || run.Status != storage.StatusRunning {
		t.Fatalf("Begin() = %q %q; want id and running", run.ID, run.Status)
	}
	l.Finish(ctx, run, errors.New("boom"))
	if run.Status != storage.StatusFailed || run.Error != "boom" {
		t.Errorf("Finish() = %q %q; want failed boom", run.Status, run.Error)
	}
	if _, err := l.Runs(ctx, 1, 10, ""); err == nil {
		t.Error("Runs() err = nil; want error without database")
	}
}

func TestRecordAndArchive(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	archive := filepath.Join(dir, "archive")
	l, err := Open(ctx, &Config{
		DBType: "sqlite",
		DBConn: filepath.Join(dir, "rapbattle.db"),
		FSType: "local",
		FSConn: archive,
	})
	if err != nil {
		t.Fatalf("Open() err = %v; want nil", err)
	}
	defer l.Close()

	final := filepath.Join(dir, "rapbattle_final.mp3")
	if err := os.WriteFile(final, []byte("mp3"), 0644); err != nil {
		t.Fatal(err)
	}
	run := &storage.Run{Kind: storage.KindProcess, VoiceID: "voice"}
	l.Begin(ctx, run)
	l.Finish(ctx, run, nil, final, filepath.Join(dir, "missing.mp3"))

	if _, err := os.Stat(filepath.Join(archive, run.ID, "rapbattle_final.mp3")); err != nil {
		t.Errorf("archived file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(archive, run.ID, "missing.mp3")); !os.IsNotExist(err) {
		t.Errorf("missing file archived: %v", err)
	}

	runs, err := l.Runs(ctx, 1, 10, storage.KindProcess)
	if err != nil {
		t.Fatalf("Runs() err = %v; want nil", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID || runs[0].Status != storage.StatusDone {
		t.Fatalf("Runs() = %+v; want one done run", runs)
	}
	runs, err = l.Runs(ctx, 1, 10, storage.KindGenerate)
	if err != nil || len(runs) != 0 {
		t.Errorf("Runs(generate) = %d, %v; want 0, nil", len(runs), err)
	}
}

func TestRestoreAndForget(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l, err := Open(ctx, &Config{
		DBType: "sqlite",
		DBConn: filepath.Join(dir, "rapbattle.db"),
		FSType: "local",
		FSConn: filepath.Join(dir, "archive"),
	})
	if err != nil {
		t.Fatalf("Open() err = %v; want nil", err)
	}
	defer l.Close()

	lyrics := filepath.Join(dir, "lyrics.txt")
	original := filepath.Join(dir, "rapbattle_original.mp3")
	for p, data := range map[string]string{lyrics: "verse", original: "mp3"} {
		if err := os.WriteFile(p, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	run := &storage.Run{Kind: storage.KindGenerate}
	l.Begin(ctx, run)
	l.Finish(ctx, run, nil, lyrics, original, filepath.Join(dir, "missing.csv"))
	if run.Artifacts != "lyrics.txt\nrapbattle_original.mp3" {
		t.Fatalf("Artifacts = %q", run.Artifacts)
	}

	out := filepath.Join(dir, "restored")
	paths, err := l.Restore(ctx, run.ID, out)
	if err != nil {
		t.Fatalf("Restore() err = %v; want nil", err)
	}
	if len(paths) != 2 {
		t.Fatalf("Restore() = %q; want 2 files", paths)
	}
	data, err := os.ReadFile(filepath.Join(out, "lyrics.txt"))
	if err != nil || string(data) != "verse" {
		t.Errorf("restored lyrics = %q, %v", data, err)
	}

	if err := l.Forget(ctx, run.ID); err != nil {
		t.Fatalf("Forget() err = %v; want nil", err)
	}
	if _, err := l.Restore(ctx, run.ID, out); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Restore() err = %v; want not found", err)
	}
	if err := l.Forget(ctx, run.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Forget() err = %v; want not found", err)
	}
	// Archived objects survive
	if _, err := os.Stat(filepath.Join(dir, "archive", run.ID, "lyrics.txt")); err != nil {
		t.Errorf("archive: %v", err)
	}
}

func TestRestoreDisabled(t *testing.T) {
	l, err := Open(context.Background(), &Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Restore(context.Background(), "id", t.TempDir()); err == nil {
		t.Error("Restore() err = nil; want error")
	}
	if err := l.Forget(context.Background(), "id"); err == nil {
		t.Error("Forget() err = nil; want error")
	}
}
