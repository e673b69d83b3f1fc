package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/igolaizola/rapbattle"
	"github.com/igolaizola/rapbattle/pkg/elevenlabs"
	"github.com/igolaizola/rapbattle/pkg/ledger"
	"github.com/igolaizola/rapbattle/pkg/player"
	"github.com/igolaizola/rapbattle/pkg/sound"
	"github.com/igolaizola/rapbattle/pkg/storage"
	"github.com/igolaizola/rapbattle/pkg/tags"
	"github.com/igolaizola/rapbattle/pkg/timeline"
)

// Hint is shown to the operator when processing fails.
const Hint = "Make sure you have the original audio file and API key set up"

const (
	// DefaultVoiceID is the target voice of the second half.
	DefaultVoiceID = "TX3LPaxmHKxFdv7VOQHJ"
	DefaultRatio   = 0.5
)

type Config struct {
	Debug    bool
	APIKey   string
	BaseURL  string
	Proxy    string
	Timeout  time.Duration
	Attempts int

	Files        rapbattle.Files
	VoiceID      string
	Model        string
	OutputFormat string
	Ratio        float64
	Bitrate      string

	Play   bool
	Wave   string
	Tag    bool
	Title  string
	Artist string

	Ledger ledger.Config
	// Output receives the step reports. Defaults to stdout.
	Output io.Writer
}

func (c *Config) out() io.Writer {
	if c.Output == nil {
		return os.Stdout
	}
	return c.Output
}

// Run splits the original track, converts the second half to the target
// voice and joins both halves again.
func Run(ctx context.Context, cfg *Config) error {
	return rapbattle.WithHint(run(ctx, cfg), Hint)
}

func run(ctx context.Context, cfg *Config) (retErr error) {
	log.Println("process: starting voice processing pipeline...")
	start := time.Now()
	defer func() {
		log.Printf("process: total time %s\n", time.Since(start))
	}()

	l, err := ledger.Open(ctx, &cfg.Ledger)
	if err != nil {
		return fmt.Errorf("process: %w", err)
	}
	defer l.Close()
	files := cfg.Files
	record := &storage.Run{
		Kind:    storage.KindProcess,
		VoiceID: voiceID(cfg),
		Input:   files.Original,
		Output:  files.Final,
	}
	l.Begin(ctx, record)
	defer func() {
		l.Finish(ctx, record, retErr, files.First, files.Second, files.Converted, files.Final, cfg.Wave)
	}()

	split, err := Split(ctx, cfg)
	if err != nil {
		return err
	}
	record.DurationMs = split.TotalMs
	record.SplitMs = split.PointMs
	locate(files.Metadata, split.PointMs)

	if err := Convert(ctx, cfg); err != nil {
		return err
	}
	if err := Combine(ctx, cfg); err != nil {
		return err
	}

	if cfg.Play {
		log.Println("process: playing the final rap battle with alternating voices...")
		if err := player.Play(ctx, files.Final); err != nil {
			log.Printf("process: couldn't play track: %v\n", err)
		}
	}
	return nil
}

// locate logs the plan section that contains the split point. The plan is
// informational only, a missing or unreadable metadata file is ignored.
func locate(metadata string, point int64) {
	if metadata == "" {
		return
	}
	b, err := os.ReadFile(metadata)
	if err != nil {
		return
	}
	entries, err := timeline.FromMetadata(b)
	if err != nil {
		log.Printf("process: %v\n", err)
		return
	}
	if e, ok := timeline.Locate(entries, point); ok {
		log.Printf("process: split point %dms falls in section %d (%s, %dms to %dms)\n", point, e.Index, e.Name, e.StartMs, e.EndMs)
	}
}

// SplitResult describes the boundaries of a split.
type SplitResult struct {
	TotalMs  int64
	PointMs  int64
	FirstMs  int64
	SecondMs int64
}

// Split cuts the original track in two at the split point and writes both
// halves.
func Split(ctx context.Context, cfg *Config) (*SplitResult, error) {
	files := cfg.Files
	if files.Original == "" || files.First == "" || files.Second == "" {
		return nil, errors.New("process: original, first and second files are required")
	}
	ratio := cfg.Ratio
	if ratio == 0 {
		ratio = DefaultRatio
	}
	if ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("process: invalid split ratio %v", ratio)
	}

	track, err := sound.Load(ctx, files.Original)
	if err != nil {
		return nil, fmt.Errorf("process: couldn't load original: %w", err)
	}
	first, second, point := track.Split(ratio)
	if err := first.Save(ctx, files.First, cfg.Bitrate); err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}
	if err := second.Save(ctx, files.Second, cfg.Bitrate); err != nil {
		return nil, fmt.Errorf("process: %w", err)
	}

	res := &SplitResult{
		TotalMs:  track.DurationMs(),
		PointMs:  point,
		FirstMs:  first.DurationMs(),
		SecondMs: second.DurationMs(),
	}
	w := cfg.out()
	fmt.Fprintln(w, "Split audio into:")
	fmt.Fprintf(w, "  Female section: 0 to %dms (%dms)\n", res.PointMs, res.FirstMs)
	fmt.Fprintf(w, "  Male section: %dms to %dms (%dms)\n", res.PointMs, res.TotalMs, res.SecondMs)
	return res, nil
}

func voiceID(cfg *Config) string {
	if cfg.VoiceID == "" {
		return DefaultVoiceID
	}
	return cfg.VoiceID
}

// Convert sends the second half to speech-to-speech and saves the result.
// The output file only appears once the whole stream has been received.
func Convert(ctx context.Context, cfg *Config) error {
	files := cfg.Files
	if files.Second == "" || files.Converted == "" {
		return errors.New("process: second and converted files are required")
	}
	voice := voiceID(cfg)

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("process: invalid proxy URL: %w", err)
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

	in, err := os.Open(files.Second)
	if err != nil {
		return fmt.Errorf("process: couldn't open %s: %w", files.Second, err)
	}
	defer in.Close()

	log.Printf("process: applying voice changer to %s with voice ID: %s\n", files.Second, voice)
	tmp, err := os.CreateTemp(filepath.Dir(files.Converted), filepath.Base(files.Converted)+".*.tmp")
	if err != nil {
		return fmt.Errorf("process: couldn't create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	n, err := client.Convert(ctx, &elevenlabs.ConvertRequest{
		VoiceID:      voice,
		ModelID:      cfg.Model,
		OutputFormat: cfg.OutputFormat,
		Audio:        in,
		Filename:     files.Second,
	}, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("couldn't close temp file: %w", cerr)
	}
	if err != nil {
		return fmt.Errorf("process: couldn't convert voice: %w", err)
	}
	if err := os.Rename(tmp.Name(), files.Converted); err != nil {
		return fmt.Errorf("process: couldn't rename converted file: %w", err)
	}
	log.Printf("process: voice-changed audio saved as: %s (%d bytes)\n", files.Converted, n)
	return nil
}

// Combine joins the first half and the converted second half.
func Combine(ctx context.Context, cfg *Config) error {
	files := cfg.Files
	if files.First == "" || files.Converted == "" || files.Final == "" {
		return errors.New("process: first, converted and final files are required")
	}
	first, err := sound.Load(ctx, files.First)
	if err != nil {
		return fmt.Errorf("process: couldn't load first section: %w", err)
	}
	converted, err := sound.Load(ctx, files.Converted)
	if err != nil {
		return fmt.Errorf("process: couldn't load converted section: %w", err)
	}
	final, err := first.Append(converted)
	if err != nil {
		return fmt.Errorf("process: couldn't combine sections: %w", err)
	}
	if err := final.Save(ctx, files.Final, cfg.Bitrate); err != nil {
		return fmt.Errorf("process: %w", err)
	}
	log.Printf("process: final rap battle track saved as: %s\n", files.Final)

	if cfg.Wave != "" {
		img, err := final.PlotWave(filepath.Base(files.Final), first.DurationMs())
		if err != nil {
			return fmt.Errorf("process: %w", err)
		}
		if err := os.WriteFile(cfg.Wave, img, 0644); err != nil {
			return fmt.Errorf("process: couldn't write wave plot: %w", err)
		}
		log.Printf("process: wave plot saved as: %s\n", cfg.Wave)
	}

	if cfg.Tag {
		var lyrics string
		if files.Lyrics != "" {
			if b, err := os.ReadFile(files.Lyrics); err == nil {
				lyrics = string(b)
			}
		}
		if err := tags.Write(files.Final, tags.Info{
			Title:   cfg.Title,
			Artist:  cfg.Artist,
			Year:    time.Now().Format("2006"),
			Lyrics:  lyrics,
			Comment: "voice " + voiceID(cfg),
		}); err != nil {
			return fmt.Errorf("process: %w", err)
		}
	}
	return nil
}
