package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 60 * time.Second
)

// Config holds Gemini connection parameters. The API key is not part of it;
// callers pass a credential per request.
type Config struct {
	BaseURL         string
	Model           string
	Timeout         time.Duration
	SearchGrounding bool
	DebugDumpPath   string
	HTTPClient      *http.Client
}

// Client sends prompts to the Gemini generateContent endpoint.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	model           string
	searchGrounding bool
	debugDumpPath   string
	dumps           sync.WaitGroup
}

var (
	finishReasonPattern = regexp.MustCompile(`"finishReason"\s*:\s*"(RECITATION|SAFETY|BLOCKLIST|PROHIBITED_CONTENT|SPII)"`)
	blockReasonPattern  = regexp.MustCompile(`"blockReason"\s*:\s*"([A-Z_]+)"`)
)

// NewClient applies defaults to cfg and returns a ready client.
func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient:      httpClient,
		baseURL:         cfg.BaseURL,
		model:           cfg.Model,
		searchGrounding: cfg.SearchGrounding,
		debugDumpPath:   strings.TrimSpace(cfg.DebugDumpPath),
	}
}

// Send posts prompt to Gemini. A content-policy rejection is not an error:
// the returned Response has Blocked set and the caller decides what to do.
func (c *Client) Send(ctx context.Context, prompt, credential string) (Response, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Response{}, ErrMissingCredential
	}

	body, err := json.Marshal(c.buildPayload(prompt))
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(credential), bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, &TransportError{Op: "request", Err: redact(err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &TransportError{Op: "read body", Err: err}
	}
	c.dump(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, &UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	out := Response{Body: raw}
	if reason := blockedReason(raw); reason != "" {
		out.Blocked = true
		out.BlockReason = reason
	}
	return out, nil
}

func (c *Client) endpoint(credential string) string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(credential))
}

func (c *Client) buildPayload(prompt string) generateRequest {
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if c.searchGrounding {
		payload.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}
	return payload
}

// dump writes the raw body for offline inspection. It never blocks Send.
func (c *Client) dump(raw []byte) {
	if c.debugDumpPath == "" {
		return
	}
	data := append([]byte(nil), raw...)
	c.dumps.Add(1)
	go func() {
		defer c.dumps.Done()
		if err := os.WriteFile(c.debugDumpPath, data, 0o644); err != nil {
			logrus.WithError(err).WithField("path", c.debugDumpPath).Warn("gemini debug dump failed")
		}
	}()
}

// WaitDumps blocks until pending debug dumps are written.
func (c *Client) WaitDumps() {
	c.dumps.Wait()
}

func blockedReason(raw []byte) string {
	if m := finishReasonPattern.FindSubmatch(raw); m != nil {
		return string(m[1])
	}
	if m := blockReasonPattern.FindSubmatch(raw); m != nil {
		return string(m[1])
	}
	return ""
}

// redact strips the query string from url errors so the key never reaches logs.
func redact(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	if parsed, perr := url.Parse(uerr.URL); perr == nil {
		parsed.RawQuery = ""
		uerr.URL = parsed.String()
	}
	return err
}
