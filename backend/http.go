package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient is the shared JSON client for HTTP-backed adapters. One client
// is configured at process start and reused across calls; net/http is safe
// for concurrent outstanding requests.
type HTTPClient struct {
	// Backend names the wrapped service in classified errors.
	Backend string
	// BaseURL is the API root, without a trailing slash.
	BaseURL string
	// Headers are attached to every request (auth tokens, API keys).
	Headers map[string]string
	// Client defaults to a 30s-timeout http.Client.
	Client *http.Client
}

const defaultHTTPTimeout = 30 * time.Second

func (c *HTTPClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// GetJSON issues a GET and decodes a JSON response into out. Failures come
// back classified; messages never include credentials.
func (c *HTTPClient) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON issues a POST with a JSON body and decodes the response into out.
func (c *HTTPClient) PostJSON(ctx context.Context, path string, body any, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := strings.TrimRight(c.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Wrap(c.Backend, CodeUnexpected, fmt.Errorf("encode request body: %w", err))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return Wrap(c.Backend, CodeUnexpected, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range c.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Connection(c.Backend, fmt.Errorf("request %s: %v", RedactURL(endpoint), rootMessage(err)))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return Wrap(c.Backend, CodeDecodeFailure, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.classifyStatus(resp.StatusCode, payload)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return Wrap(c.Backend, CodeDecodeFailure, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *HTTPClient) classifyStatus(status int, payload []byte) *Error {
	code := CodeUpstreamFailure
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = CodeAccessDenied
	case status == http.StatusNotFound:
		code = CodeNotFound
	case status == http.StatusTooManyRequests:
		code = CodeRateLimited
	}

	backendErr := New(c.Backend, code, upstreamMessage(status, payload))
	backendErr.StatusCode = status
	return backendErr
}

// upstreamMessage extracts the backend's own error text when the body is a
// recognizable JSON error shape, with the raw status text as fallback.
func upstreamMessage(status int, payload []byte) string {
	var shaped struct {
		Error   string   `json:"error"`
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(payload, &shaped); err == nil {
		switch {
		case shaped.Error != "":
			return shaped.Error
		case shaped.Message != "":
			return shaped.Message
		case len(shaped.Errors) > 0:
			return strings.Join(shaped.Errors, "; ")
		}
	}
	text := strings.TrimSpace(string(payload))
	if text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
		return fmt.Sprintf("status %d: %s", status, text)
	}
	return fmt.Sprintf("status %d: %s", status, http.StatusText(status))
}

// rootMessage strips the url.Error wrapper so endpoint credentials embedded
// by callers never leak through error text.
func rootMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}
