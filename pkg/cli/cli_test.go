package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestTimelineFromEnvAndConfig(t *testing.T) {
	dir := t.TempDir()
	metadata := filepath.Join(dir, "meta.json")
	doc := `{"composition_plan":{"sections":[{"sectionName":"Intro","durationMs":1000}]}}`
	if err := os.WriteFile(metadata, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	csv := filepath.Join(dir, "timeline.csv")
	config := filepath.Join(dir, "rapbattle.yaml")
	if err := os.WriteFile(config, []byte("timeline-csv: "+csv+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RAPBATTLE_METADATA", metadata)

	cmd := New("test", "", "")
	if err := cmd.ParseAndRun(context.Background(), []string{"timeline", "-config", config}); err != nil {
		t.Fatalf("ParseAndRun() err = %v; want nil", err)
	}
	if _, err := os.Stat(csv); err != nil {
		t.Errorf("csv from config file missing: %v", err)
	}
}

func TestSubcommands(t *testing.T) {
	want := []string{"version", "lyrics", "generate", "timeline", "process", "split", "convert", "combine", "play", "migrate", "runs", "restore"}
	cmd := New("", "", "")
	if len(cmd.Subcommands) != len(want) {
		t.Fatalf("len(Subcommands) = %d; want %d", len(cmd.Subcommands), len(want))
	}
	for i, sub := range cmd.Subcommands {
		if sub.Name != want[i] {
			t.Errorf("Subcommands[%d] = %q; want %q", i, sub.Name, want[i])
		}
	}
}
