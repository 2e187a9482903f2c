// Package rest is the HTTP adapter for the admin backend services. It
// speaks the JSON contract of the expensetracker, roommanager and revenue
// APIs and reports every non-2xx response payload back verbatim.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"laundryadmin/internal/gateway"
	"laundryadmin/internal/log"
)

const DefaultTimeout = 30 * time.Second

type Client struct {
	baseURL  string
	apiToken string
	client   *http.Client
	logger   *log.Logger
}

type Option func(*Client)

// WithAPIToken sets the token sent as a DRF-style Authorization header.
// The refund endpoint rejects unauthenticated callers.
func WithAPIToken(token string) Option {
	return func(c *Client) { c.apiToken = token }
}

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func New(baseURL string, logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  logger.WithComponent(log.ComponentGateway),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string) (gateway.Result, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (gateway.Result, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (gateway.Result, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (gateway.Result, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return gateway.Result{}, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return gateway.Result{}, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Token "+c.apiToken)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "request failed",
			log.FieldMethod, method,
			log.FieldPath, path,
			log.FieldRequestID, requestID,
			log.FieldError, err)
		return gateway.Result{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gateway.Result{}, fmt.Errorf("read %s %s response: %w", method, path, err)
	}

	c.logger.DebugContext(ctx, "request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldRequestID, requestID,
		log.FieldStatus, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	return gateway.Result{StatusCode: resp.StatusCode, Data: data}, nil
}
