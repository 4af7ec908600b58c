package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

const maxResponseBytes = 1 << 20

// client implements every tier; the Factory decides which credentials it carries.
type client struct {
	baseURL string
	apiKey  string
	// bearer is sent as the Authorization header. Empty when the transport
	// injects the end-user token instead.
	bearer  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
}

type response struct {
	status int
	body   []byte
}

// do sends req and decodes a successful JSON response into out (when non-nil).
func (c *client) do(ctx context.Context, req request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", req.method, req.path, err)
		}
		reader = bytes.NewReader(b)
	}

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if c.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.header {
		httpReq.Header[k] = v
	}

	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}
		// 5xx count against the breaker; 4xx are the caller's problem.
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, newAPIError(resp.StatusCode, body)
		}
		return &response{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return fmt.Errorf("%w: %s %s: %w", ErrUnavailable, req.method, req.path, err)
	}

	resp := result.(*response)
	if resp.status >= http.StatusBadRequest {
		return newAPIError(resp.status, resp.body)
	}

	if out != nil && len(bytes.TrimSpace(resp.body)) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
		}
	}
	return nil
}
