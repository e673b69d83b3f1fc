package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-4o"

type Client struct {
	client *openai.Client
	model  string
	system string
	debug  bool
}

type Config struct {
	Debug   bool
	Token   string
	Model   string
	BaseURL string
	// System is an optional system message sent before every prompt.
	System string
	Client *http.Client
}

func New(cfg *Config) *Client {
	oc := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Client != nil {
		oc.HTTPClient = cfg.Client
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: openai.NewClientWithConfig(oc),
		model:  model,
		system: cfg.System,
		debug:  cfg.Debug,
	}
}

// ChatCompletion sends a single user message and returns the first answer.
func (c *Client) ChatCompletion(ctx context.Context, msg string) (string, error) {
	var msgs []openai.ChatCompletionMessage
	if c.system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.system,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: msg,
	})
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("openai: couldn't create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	if c.debug {
		log.Printf("openai: %s used %d tokens\n", resp.Model, resp.Usage.TotalTokens)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
