package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/saturnines/ptaf-export/pkg/auth"
)

// Client is the PTAF PRO REST client. Endpoints are resolved against the
// API base URL; auth is applied per request through an auth.Handler.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	logger     *zap.Logger
}

// Option defines config for Client
type Option func(*Client)

// New creates a new Client with the given options
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		headers: make(map[string]string),
		logger:  zap.NewNop(),
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHeader adds a header to all requests
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithInsecureTLS disables TLS certificate verification. PTAF PRO lab
// installs commonly run on self-signed certificates.
func WithInsecureTLS() Option {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// HTTPClient exposes the underlying HTTP client so the auth layer can share
// its transport settings (timeout, TLS verification).
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Get performs a GET request to the specified endpoint
func (c *Client) Get(ctx context.Context, endpoint string, handler auth.Handler) (*http.Response, error) {
	return c.Request(ctx, http.MethodGet, endpoint, nil, handler)
}

// Post performs a POST request with a JSON payload.
func (c *Client) Post(ctx context.Context, endpoint string, payload interface{}, handler auth.Handler) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return c.Request(ctx, http.MethodPost, endpoint, body, handler)
}

// Request performs an HTTP request with whatever method to the endpoint.
// On a 401/403 response the request is retried exactly once when the auth
// handler supports invalidating its cached token.
func (c *Client) Request(ctx context.Context, method, endpoint string, body []byte, handler auth.Handler) (*http.Response, error) {
	resp, err := c.do(ctx, method, endpoint, body, handler)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	refresher, ok := handler.(auth.Refresher)
	if !ok {
		return resp, nil
	}

	c.logger.Warn("auth challenge, refreshing token and retrying",
		zap.Int("status", resp.StatusCode),
		zap.String("endpoint", endpoint))

	resp.Body.Close()
	refresher.Invalidate()

	return c.do(ctx, method, endpoint, body, handler)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, handler auth.Handler) (*http.Response, error) {
	url := fmt.Sprintf("%s%s", c.baseURL, endpoint)

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add default headers
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	// All requests with a body are JSON, set Content-Type header
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if handler != nil {
		if err := handler.ApplyAuth(req); err != nil {
			return nil, err
		}
	}

	return c.httpClient.Do(req)
}

// StatusError reports an unexpected HTTP status with a body excerpt.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// CheckStatus returns a StatusError unless the response has the wanted code.
func CheckStatus(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
}

// ExtractJSON extracts JSON data from an HTTP response into the provided target
func ExtractJSON(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return nil
}
