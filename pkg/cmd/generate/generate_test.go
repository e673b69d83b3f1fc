package generate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/igolaizola/rapbattle"
	"github.com/igolaizola/rapbattle/pkg/elevenlabs"
)

func TestBuildPrompt(t *testing.T) {
	lyrics := "Line one\n  indented \"quoted\" %s\n\n"
	p := BuildPrompt(lyrics)
	want := "Here's the battle content to perform:\n\n" + lyrics + "\n\nStructure this as a rap battle with:"
	if !strings.Contains(p, want) {
		t.Fatalf("BuildPrompt() = %q; want lyrics embedded verbatim", p)
	}
	if !strings.HasPrefix(p, "Create a hip-hop rap battle track with a strong female rapper") {
		t.Errorf("BuildPrompt() prefix = %q", p[:40])
	}
	if !strings.HasSuffix(p, "- Female voice throughout the entire track") {
		t.Errorf("BuildPrompt() doesn't end with the last requirement")
	}
}

func newServer(t *testing.T, metadata string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/music/detailed" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !bytes.Contains(body, []byte("Verse one")) {
			t.Errorf("request body doesn't contain lyrics: %s", body)
		}
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", "application/json")
		p, _ := mw.CreatePart(h)
		_, _ = p.Write([]byte(metadata))
		h = textproto.MIMEHeader{}
		h.Set("Content-Type", "audio/mpeg")
		h.Set("Content-Disposition", `attachment; filename="battle.mp3"`)
		p, _ = mw.CreatePart(h)
		_, _ = p.Write([]byte("ID3fake"))
		_ = mw.Close()
		w.Header().Set("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
		_, _ = w.Write(buf.Bytes())
	}))
}

func testFiles(dir string) rapbattle.Files {
	files := rapbattle.DefaultFiles()
	files.Lyrics = filepath.Join(dir, files.Lyrics)
	files.Original = filepath.Join(dir, files.Original)
	files.Metadata = filepath.Join(dir, files.Metadata)
	return files
}

func TestRun(t *testing.T) {
	metadata := `{"composition_plan":{"sections":[{"sectionName":"Intro","durationMs":5000},{"sectionName":"Verse","durationMs":10000}]},"song_metadata":{"title":"Battle"}}`
	srv := newServer(t, metadata)
	defer srv.Close()

	dir := t.TempDir()
	files := testFiles(dir)
	if err := os.WriteFile(files.Lyrics, []byte("Verse one"), 0644); err != nil {
		t.Fatal(err)
	}
	csv := filepath.Join(dir, "timeline.csv")
	var out bytes.Buffer
	err := Run(context.Background(), &Config{
		APIKey:      "key",
		BaseURL:     srv.URL,
		Files:       files,
		TimelineCSV: csv,
		Output:      &out,
	})
	if err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}

	want := "\nComposition Plan Sections:\n" +
		"  Section 1: Intro - 0ms to 5000ms (5000ms)\n" +
		"  Section 2: Verse - 5000ms to 15000ms (10000ms)\n"
	if out.String() != want {
		t.Errorf("output = %q; want %q", out.String(), want)
	}
	audio, err := os.ReadFile(files.Original)
	if err != nil || string(audio) != "ID3fake" {
		t.Errorf("original = %q, %v; want ID3fake", audio, err)
	}
	js, err := os.ReadFile(files.Metadata)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(js), "{\n  \"composition_plan\": {\n    \"sections\": [") {
		t.Errorf("metadata = %s; want two space indent", js)
	}
	b, err := os.ReadFile(csv)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "index,name,start_ms,end_ms,duration_ms\n1,Intro,0,5000,5000\n") {
		t.Errorf("csv = %q", b)
	}
}

func TestRunWithoutPlan(t *testing.T) {
	srv := newServer(t, `{"song_metadata":{}}`)
	defer srv.Close()

	files := testFiles(t.TempDir())
	if err := os.WriteFile(files.Lyrics, []byte("Verse one"), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := Run(context.Background(), &Config{APIKey: "key", BaseURL: srv.URL, Files: files, Output: &out}); err != nil {
		t.Fatalf("Run() err = %v; want nil", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q; want empty", out.String())
	}
}

func TestRunPlanEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		want     string
	}{
		{"empty plan", `{"composition_plan":{}}`, "\nComposition Plan Sections:\n"},
		{"float duration", `{"composition_plan":{"sections":[{"sectionName":"Intro","durationMs":5000.0}]}}`,
			"\nComposition Plan Sections:\n  Section 1: Intro - 0ms to 5000ms (5000ms)\n"},
		{"malformed plan", `{"composition_plan":{"sections":[{"durationMs":"long"}]}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.metadata)
			defer srv.Close()

			files := testFiles(t.TempDir())
			if err := os.WriteFile(files.Lyrics, []byte("Verse one"), 0644); err != nil {
				t.Fatal(err)
			}
			var out bytes.Buffer
			if err := Run(context.Background(), &Config{APIKey: "key", BaseURL: srv.URL, Files: files, Output: &out}); err != nil {
				t.Fatalf("Run() err = %v; want nil", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q; want %q", out.String(), tt.want)
			}
			if _, err := os.Stat(files.Original); err != nil {
				t.Errorf("original missing: %v", err)
			}
		})
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	files := testFiles(dir)

	err := Run(context.Background(), &Config{APIKey: "key", Files: files})
	if err == nil {
		t.Fatal("Run() err = nil; want missing lyrics error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v; want not exist", err)
	}
	if rapbattle.Hint(err) != Hint {
		t.Errorf("Hint() = %q; want %q", rapbattle.Hint(err), Hint)
	}

	if err := os.WriteFile(files.Lyrics, []byte("Verse one"), 0644); err != nil {
		t.Fatal(err)
	}
	err = Run(context.Background(), &Config{BaseURL: "http://127.0.0.1:1", Files: files})
	if !errors.Is(err, elevenlabs.ErrMissingAPIKey) {
		t.Fatalf("err = %v; want missing api key", err)
	}
	if _, err := os.Stat(files.Original); !os.IsNotExist(err) {
		t.Errorf("original written after failure: %v", err)
	}
}
