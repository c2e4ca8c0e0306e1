// Package httpclient provides the HTTP client shared by every API handle
// bound to the current media server, and the adapter owning its defaults.
package httpclient

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
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-media-remote/pkg/logging"
)

// ErrNoBaseURL is returned for relative requests on a client without a base address
var ErrNoBaseURL = errors.New("httpclient: no base URL configured")

// Defaults are the options applied to every request of a Client
type Defaults struct {
	// BaseURL is the prefix of relative request paths, empty when unset
	BaseURL string
	Header  http.Header
	Timeout time.Duration
}

func (d Defaults) clone() Defaults {
	d.Header = d.Header.Clone()
	if d.Header == nil {
		d.Header = http.Header{}
	}
	return d
}

// Request describes a single API call
type Request struct {
	Method string
	// Path is resolved against the base address unless it is an absolute URL
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON-encoded when not nil
	Body any
}

// StatusError is returned for responses with a status code >= 400
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Client is an HTTP client with mutable defaults
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger

	mu       sync.RWMutex
	defaults Defaults
}

// NewClient creates a client with its own pooled transport
func NewClient(defaults Defaults, logger *zap.Logger) *Client {
	return &Client{
		httpClient: cleanhttp.DefaultPooledClient(),
		logger:     logging.Named(logger, "http"),
		defaults:   defaults.clone(),
	}
}

// Defaults returns a copy of the current defaults
func (c *Client) Defaults() Defaults {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaults.clone()
}

// BaseURL returns the current base address, empty when unset
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaults.BaseURL
}

// SetBaseURL sets the base address of relative requests
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	c.defaults.BaseURL = baseURL
	c.mu.Unlock()
}

// SetHeader sets a default header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	c.defaults.Header.Set(key, value)
	c.mu.Unlock()
}

func (c *Client) setDefaults(d Defaults) {
	c.mu.Lock()
	c.defaults = d.clone()
	c.mu.Unlock()
}

// Do performs req and decodes a JSON response into out when out is not nil
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	defaults := c.Defaults()

	target, err := resolve(defaults.BaseURL, req.Path)
	if err != nil {
		return err
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reqBody io.Reader
	if req.Body != nil {
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	if defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaults.Timeout)
		defer cancel()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range defaults.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("request", zap.String("method", method), zap.String("url", target))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) *StatusError {
	var errResp struct {
		Error  string `json:"error"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case errResp.Error != "":
			return &StatusError{StatusCode: code, Message: errResp.Error}
		case errResp.Detail != "":
			return &StatusError{StatusCode: code, Message: errResp.Detail}
		case errResp.Title != "":
			return &StatusError{StatusCode: code, Message: errResp.Title}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(code)
	}
	return &StatusError{StatusCode: code, Message: msg}
}

func resolve(baseURL, path string) (string, error) {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path, nil
	}
	if baseURL == "" {
		return "", ErrNoBaseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(path, "/"), nil
}
