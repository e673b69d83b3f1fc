package runs

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/igolaizola/rapbattle/pkg/ledger"
	"github.com/igolaizola/rapbattle/pkg/storage"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	cfg := ledger.Config{DBType: "sqlite", DBConn: filepath.Join(t.TempDir(), "rapbattle.db")}
	l, err := ledger.Open(ctx, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	run := &storage.Run{Kind: storage.KindGenerate, Output: "rapbattle_original.mp3"}
	l.Begin(ctx, run)
	l.Finish(ctx, run, nil)
	l.Close()

	var out bytes.Buffer
	if err := Run(ctx, &Config{Ledger: cfg, Output: &out}); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q; want header and one run", lines)
	}
	if !strings.HasPrefix(lines[1], run.ID) || !strings.Contains(lines[1], "done") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	cfg := ledger.Config{DBType: "sqlite", DBConn: filepath.Join(t.TempDir(), "rapbattle.db")}
	l, err := ledger.Open(ctx, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	run := &storage.Run{Kind: storage.KindProcess}
	l.Begin(ctx, run)
	l.Finish(ctx, run, nil)
	l.Close()

	var out bytes.Buffer
	if err := Run(ctx, &Config{Ledger: cfg, Forget: run.ID, Output: &out}); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	if out.String() != "Forgot run "+run.ID+"\n" {
		t.Errorf("output = %q", out.String())
	}
	out.Reset()
	if err := Run(ctx, &Config{Ledger: cfg, Output: &out}); err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(out.String()), "\n"); len(lines) != 1 {
		t.Errorf("lines = %q; want only the header", lines)
	}
	if err := Run(ctx, &Config{Ledger: cfg, Forget: run.ID, Output: &out}); err == nil {
		t.Error("Run() err = nil; want not found")
	}
}

func TestRunWithoutDatabase(t *testing.T) {
	if err := Run(context.Background(), &Config{}); err == nil {
		t.Fatal("Run() err = nil; want error")
	}
}
