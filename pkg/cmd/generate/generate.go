package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/igolaizola/rapbattle"
	"github.com/igolaizola/rapbattle/pkg/elevenlabs"
	"github.com/igolaizola/rapbattle/pkg/ledger"
	"github.com/igolaizola/rapbattle/pkg/player"
	"github.com/igolaizola/rapbattle/pkg/storage"
	"github.com/igolaizola/rapbattle/pkg/tags"
	"github.com/igolaizola/rapbattle/pkg/timeline"
)

// Hint is shown to the operator when the generation fails.
const Hint = "Make sure you have set ELEVENLABS_API_KEY in your .env file"

// DefaultLengthMs is the requested track length.
const DefaultLengthMs = 60000

type Config struct {
	Debug    bool
	APIKey   string
	BaseURL  string
	Proxy    string
	Timeout  time.Duration
	Attempts int

	Files        rapbattle.Files
	LengthMs     int64
	Model        string
	OutputFormat string

	Play        bool
	TimelineCSV string
	Tag         bool
	Title       string
	Artist      string

	Ledger ledger.Config
	// Output receives the timeline. Defaults to stdout.
	Output io.Writer
}

// Run generates the rap battle track from the lyrics file.
func Run(ctx context.Context, cfg *Config) error {
	return rapbattle.WithHint(run(ctx, cfg), Hint)
}

func run(ctx context.Context, cfg *Config) (retErr error) {
	debug := func(format string, args ...any) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	files := cfg.Files
	if files.Lyrics == "" || files.Original == "" || files.Metadata == "" {
		return errors.New("generate: lyrics, original and metadata files are required")
	}
	lengthMs := cfg.LengthMs
	if lengthMs == 0 {
		lengthMs = DefaultLengthMs
	}
	if lengthMs < 0 {
		return fmt.Errorf("generate: invalid length %d", lengthMs)
	}

	b, err := os.ReadFile(files.Lyrics)
	if err != nil {
		return fmt.Errorf("generate: couldn't read lyrics: %w", err)
	}
	lyrics := string(b)
	prompt := BuildPrompt(lyrics)
	debug("generate: prompt %q", prompt)

	l, err := ledger.Open(ctx, &cfg.Ledger)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	defer l.Close()
	record := &storage.Run{
		Kind:     storage.KindGenerate,
		Prompt:   prompt,
		LengthMs: lengthMs,
		Input:    files.Lyrics,
		Output:   files.Original,
		Metadata: files.Metadata,
	}
	l.Begin(ctx, record)
	defer func() {
		l.Finish(ctx, record, retErr, files.Lyrics, files.Original, files.Metadata, cfg.TimelineCSV)
	}()
	debug("generate: run %s", record.ID)

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("generate: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	client := elevenlabs.New(&elevenlabs.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Debug:       cfg.Debug,
		Client:      httpClient,
		MaxAttempts: cfg.Attempts,
	})

	log.Println("generate: generating rap battle track...")
	start := time.Now()
	comp, err := client.ComposeDetailed(ctx, &elevenlabs.ComposeRequest{
		Prompt:       prompt,
		LengthMs:     lengthMs,
		ModelID:      cfg.Model,
		OutputFormat: cfg.OutputFormat,
	})
	if err != nil {
		return fmt.Errorf("generate: couldn't compose track: %w", err)
	}
	debug("generate: composed in %s", time.Since(start))

	if err := os.WriteFile(files.Original, comp.Audio, 0644); err != nil {
		return fmt.Errorf("generate: couldn't write audio: %w", err)
	}
	js, err := comp.IndentJSON()
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if err := os.WriteFile(files.Metadata, js, 0644); err != nil {
		return fmt.Errorf("generate: couldn't write metadata: %w", err)
	}
	record.Filename = comp.Filename
	log.Printf("generate: track generated and saved as: %s\n", files.Original)
	log.Printf("generate: metadata saved as: %s\n", files.Metadata)
	log.Printf("generate: original filename from API: %s\n", comp.Filename)

	// The track is already saved, a malformed plan only loses the timeline
	entries, err := timeline.FromMetadata(comp.JSON)
	if err != nil {
		log.Printf("generate: couldn't build timeline: %v\n", err)
	}
	record.Sections = len(entries)
	if entries != nil {
		if err := timeline.Print(out, entries); err != nil {
			return fmt.Errorf("generate: couldn't print timeline: %w", err)
		}
		if cfg.TimelineCSV != "" {
			csv, err := timeline.CSV(entries)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			if err := os.WriteFile(cfg.TimelineCSV, csv, 0644); err != nil {
				return fmt.Errorf("generate: couldn't write timeline csv: %w", err)
			}
			log.Printf("generate: timeline saved as: %s\n", cfg.TimelineCSV)
		}
	}

	if cfg.Tag {
		if err := tags.Write(files.Original, tags.Info{
			Title:   cfg.Title,
			Artist:  cfg.Artist,
			Year:    time.Now().Format("2006"),
			Lyrics:  lyrics,
			Comment: record.ID,
		}); err != nil {
			return fmt.Errorf("generate: %w", err)
		}
	}

	if cfg.Play {
		log.Println("generate: playing the generated track...")
		if err := player.Play(ctx, files.Original); err != nil {
			log.Printf("generate: couldn't play track: %v\n", err)
		}
	}
	return nil
}
