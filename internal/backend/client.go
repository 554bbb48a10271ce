package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// HeaderSource supplies auth headers for backend calls. The desktop shell
// owns credentials and session state; the client only applies what it is
// handed.
type HeaderSource interface {
	ApplyHeaders(h http.Header)
}

// HeaderMap is a static HeaderSource.
type HeaderMap map[string]string

func (m HeaderMap) ApplyHeaders(h http.Header) {
	for k, v := range m {
		h.Set(k, v)
	}
}

// BearerToken is a HeaderSource setting a standard Authorization header.
type BearerToken string

func (t BearerToken) ApplyHeaders(h http.Header) {
	if t != "" {
		h.Set("Authorization", "Bearer "+string(t))
	}
}

// Client talks to the Quill backend API through the executor. Each method
// brings its own policy.
type Client struct {
	baseURL string
	headers HeaderSource
	exec    *Executor
	logger  *slog.Logger
}

// NewClient builds a backend client for baseURL.
func NewClient(baseURL string, headers HeaderSource, exec *Executor, logger *slog.Logger) *Client {
	if headers == nil {
		headers = HeaderMap{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: headers,
		exec:    exec,
		logger:  logger,
	}
}

// GenerateRequest asks the backend for fill instructions for one form.
type GenerateRequest struct {
	FormHTML string            `json:"form_html"`
	Profile  map[string]string `json:"profile,omitempty"`
	Enhanced bool              `json:"enhanced,omitempty"`
}

// GenerateResult carries the model text the recovery pipeline consumes,
// plus the backend's request id for support correlation.
type GenerateResult struct {
	Text      string `json:"text"`
	RequestID string `json:"request_id,omitempty"`
}

// Account is the subscription metadata shown by the shell.
type Account struct {
	Email         string `json:"email"`
	Plan          string `json:"plan"`
	RunsRemaining int    `json:"runs_remaining"`
}

// GenerateInstructions runs a generation call under the generation policy
// and returns the raw model text for the recovery pipeline.
func (c *Client) GenerateInstructions(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var out GenerateResult
	if err := c.postJSON(ctx, "/v1/fill/generate", req, &out, GenerationPolicy()); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchAccount fetches subscription metadata under the metadata policy.
func (c *Client) FetchAccount(ctx context.Context) (*Account, error) {
	var out Account
	if err := c.getJSON(ctx, "/v1/account", &out, MetadataPolicy()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any, policy Policy) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.headers.ApplyHeaders(req.Header)
		return req, nil
	}
	return c.call(ctx, build, out, policy)
}

func (c *Client) getJSON(ctx context.Context, path string, out any, policy Policy) error {
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		c.headers.ApplyHeaders(req.Header)
		return req, nil
	}
	return c.call(ctx, build, out, policy)
}

func (c *Client) call(ctx context.Context, build RequestBuilder, out any, policy Policy) error {
	resp, err := c.exec.Do(ctx, build, policy)
	if err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return &APIError{Status: resp.Status, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls a human message out of an error body, tolerating both
// {"error": "..."} payloads and plain text.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
