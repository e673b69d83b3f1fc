package lyrics

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/igolaizola/rapbattle/pkg/openai"
)

type Config struct {
	Debug   bool
	Key     string
	Model   string
	BaseURL string
	Proxy   string
	Timeout time.Duration

	Topic  string
	Female string
	Male   string
	Output string
}

const system = "You are a battle rap writer. Answer only with the lyrics, without titles or explanations."

// Prompt returns the request sent to the chat model. The first half of the
// script belongs to the female rapper and the second half to the male one,
// matching the split done by the voice processor.
func Prompt(cfg *Config) string {
	female := cfg.Female
	if female == "" {
		female = "the female rapper"
	}
	male := cfg.Male
	if male == "" {
		male = "the male rapper"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a short rap battle between %s and %s.\n", female, male)
	if cfg.Topic != "" {
		fmt.Fprintf(&sb, "Topic: %s\n", cfg.Topic)
	}
	fmt.Fprintf(&sb, "%s raps the first half with two verses, then %s answers with two verses in the second half.\n", female, male)
	sb.WriteString("Keep it under 60 seconds when performed at 90-110 BPM.")
	return sb.String()
}

// Run drafts a rap battle script and writes it to the lyrics file.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Key == "" {
		return errors.New("lyrics: missing openai key")
	}
	if cfg.Output == "" {
		return errors.New("lyrics: missing output file")
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("lyrics: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	client := openai.New(&openai.Config{
		Debug:   cfg.Debug,
		Token:   cfg.Key,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		System:  system,
		Client:  httpClient,
	})

	log.Println("lyrics: drafting rap battle...")
	text, err := client.ChatCompletion(ctx, Prompt(cfg))
	if err != nil {
		return fmt.Errorf("lyrics: %w", err)
	}
	if text == "" {
		return errors.New("lyrics: empty answer")
	}
	if err := os.WriteFile(cfg.Output, []byte(text+"\n"), 0644); err != nil {
		return fmt.Errorf("lyrics: couldn't write %s: %w", cfg.Output, err)
	}
	log.Printf("lyrics: saved as %s\n", cfg.Output)
	return nil
}
