package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"community-bot/internal/common/metrics"
)

// Client issues JSON requests against a single REST host.
type Client struct {
	httpClient *http.Client
	baseURL    string
	service    string
	headers    http.Header
}

type Option func(*Client)

// WithBasicToken sends "Authorization: Basic <base64(token)>". The token is
// expected to already be in user:password form.
func WithBasicToken(token string) Option {
	return func(c *Client) {
		c.headers.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(token)))
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

func NewClient(service, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		service:    service,
		headers:    http.Header{},
	}
	c.headers.Set("Content-Type", "application/json")
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one call. Operation is a low-cardinality name used for
// metrics and error messages.
type Request struct {
	Operation string
	Method    string
	Path      string
	Query     url.Values
	Body      interface{}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Do sends req and decodes a JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	endpoint := c.baseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to encode %s body: %w", req.Operation, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", req.Operation, err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.ExternalRequests.WithLabelValues(c.service, req.Operation, "error").Inc()
		return fmt.Errorf("%s request failed: %w", req.Operation, err)
	}
	defer resp.Body.Close()

	metrics.ExternalRequests.WithLabelValues(c.service, req.Operation, strconv.Itoa(resp.StatusCode)).Inc()
	metrics.ExternalRequestDuration.WithLabelValues(c.service, req.Operation).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", req.Operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{
			Method:     req.Method,
			URL:        c.baseURL + req.Path,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", req.Operation, err)
	}
	return nil
}
