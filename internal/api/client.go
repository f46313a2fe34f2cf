// Package api is the client for the remote expenses service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"fintrack/internal/core"
)

const (
	expensesPath = "/expenses/"
	maxBodyBytes = 10 << 20
)

// Client talks to GET/POST {baseURL}/expenses/.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the given base URL. A timeout of zero
// disables the per-request deadline.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string { return c.baseURL }

// List fetches the full expense collection.
func (c *Client) List(ctx context.Context) ([]core.Expense, error) {
	const op = "list expenses"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+expensesPath, nil)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &core.NetworkError{Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	items, err := decodeExpenses(body)
	if err != nil {
		return nil, &core.ParseError{Op: op, Err: err}
	}
	return items, nil
}

// Create posts one expense. The response body is ignored.
func (c *Client) Create(ctx context.Context, e core.Expense) error {
	const op = "create expense"
	payload, err := json.Marshal(struct {
		Date        string `json:"date"`
		Category    string `json:"category"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}{e.Date, e.Category, e.Amount, e.Description})
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+expensesPath, bytes.NewReader(payload))
	if err != nil {
		return &core.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &core.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &core.NetworkError{Op: op, StatusCode: resp.StatusCode}
	}
	return nil
}
