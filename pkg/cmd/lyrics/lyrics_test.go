package lyrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrompt(t *testing.T) {
	p := Prompt(&Config{Topic: "pineapple on pizza", Female: "Nova", Male: "Rex"})
	for _, want := range []string{"between Nova and Rex", "Topic: pineapple on pizza", "Nova raps the first half"} {
		if !strings.Contains(p, want) {
			t.Errorf("Prompt() = %q; want it to contain %q", p, want)
		}
	}
	if p := Prompt(&Config{}); strings.Contains(p, "Topic:") {
		t.Errorf("Prompt() = %q; want no topic line", p)
	}
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Verse one\nVerse two"}}]}`))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "rapbattle.txt")
	err := Run(context.Background(), &Config{
		Key:     "key",
		BaseURL: srv.URL,
		Output:  out,
	})
	if err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "Verse one\nVerse two\n" {
		t.Errorf("lyrics = %q", b)
	}
}

func TestRunMissingKey(t *testing.T) {
	if err := Run(context.Background(), &Config{Output: "x"}); err == nil {
		t.Fatal("Run() err = nil; want error")
	}
}
