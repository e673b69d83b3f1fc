package elevenlabs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// ErrMissingAPIKey is returned by every call when the client has no key.
var ErrMissingAPIKey = errors.New("elevenlabs: missing api key")

type Client struct {
	client      *http.Client
	apiKey      string
	baseURL     string
	debug       bool
	maxAttempts int
}

type Config struct {
	APIKey  string
	BaseURL string
	Debug   bool
	Client  *http.Client
	// MaxAttempts is the number of tries per call. Zero or one disables retries.
	MaxAttempts int
}

func New(cfg *Config) *Client {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		client:      client,
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		debug:       cfg.Debug,
		maxAttempts: maxAttempts,
	}
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

// StatusError is returned when the API answers with a non 2xx status.
type StatusError struct {
	Method  string
	URL     string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("elevenlabs: %s %s returned %d (%s)", e.Method, e.URL, e.Code, e.Message)
}

var backoff = []time.Duration{
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
}

type request struct {
	method      string
	path        string
	contentType string
	accept      string
	body        []byte
}

// do sends the request and returns the response once a 2xx status is
// received. The caller must close the body. Only the request phase is retried,
// the response body is never read twice.
func (c *Client) do(ctx context.Context, r *request) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	attempts := 0
	var err error
	for {
		if err != nil {
			log.Println("elevenlabs: retrying...", err)
		}
		var resp *http.Response
		resp, err = c.doAttempt(ctx, r)
		if err == nil {
			return resp, nil
		}
		attempts++
		if attempts >= c.maxAttempts {
			return nil, err
		}

		var retry bool
		var netErr net.Error
		var statusErr *StatusError
		switch {
		case errors.As(err, &netErr) && netErr.Timeout():
			retry = true
		case errors.As(err, &statusErr):
			switch statusErr.Code {
			case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				retry = true
			}
		}
		if !retry {
			return nil, err
		}

		idx := attempts - 1
		if idx >= len(backoff) {
			idx = len(backoff) - 1
		}
		wait := backoff[idx]
		c.log("elevenlabs: waiting %s before retrying", wait)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) doAttempt(ctx context.Context, r *request) (*http.Response, error) {
	u := c.baseURL + r.path
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	c.log("elevenlabs: do %s %s (%d bytes)", r.method, u, len(r.body))

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: couldn't create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if r.contentType != "" {
		req.Header.Set("content-type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("accept", r.accept)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: couldn't %s %s: %w", r.method, u, err)
	}
	c.log("elevenlabs: response %s %s %d", r.method, u, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		msg := strings.TrimSpace(string(b))
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return nil, &StatusError{
			Method:  r.method,
			URL:     u,
			Code:    resp.StatusCode,
			Message: msg,
		}
	}
	return resp, nil
}
