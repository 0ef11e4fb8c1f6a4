// Package client is a typed Go client for the storefront HTTP API. It wraps
// the public REST surface (catalog, cart, checkout, orders, auth) and decodes
// the API's response envelopes into typed results. Failures carry the server's
// error code and details as an *APIError.
//
// Session-based flows (cart, checkout) ride the cookie jar installed on the
// default HTTP client. Token-based flows call Token after Login and pass the
// result to SetToken.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Config carries the knobs for New. BaseURL is the only required field.
type Config struct {
	// BaseURL is the root of the API, e.g. "http://localhost:8080".
	BaseURL string

	// HTTPClient overrides the default client. Callers supplying their own
	// are responsible for attaching a cookie jar if they need session flows.
	HTTPClient *http.Client

	// Token seeds the Authorization header. Usually left empty and set later
	// via SetToken once Login and Token have run.
	Token string
}

// Client talks to one storefront API instance. It is safe for concurrent use
// as long as SetToken is not raced against in-flight requests.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	userAgent  string
}

// New builds a Client for the API at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must include scheme and host")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("build cookie jar: %w", err)
		}
		httpClient = &http.Client{Timeout: defaultTimeout, Jar: jar}
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		token:      cfg.Token,
		userAgent:  "storefront-go-client/1.0",
	}, nil
}

// SetToken installs the bearer token sent on subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// ClearToken drops the bearer token. Session cookies are unaffected.
func (c *Client) ClearToken() {
	c.token = ""
}

// APIError is the decoded error envelope for any non-2xx response. Details
// holds field-level validation messages when the server returned them.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: %s (status %d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an *APIError for a missing resource.
func IsNotFound(err error) bool {
	apiErr, ok := errAs(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is an *APIError for a version, state, or
// uniqueness conflict.
func IsConflict(err error) bool {
	apiErr, ok := errAs(err)
	return ok && apiErr.StatusCode == http.StatusConflict
}

// IsUnauthorized reports whether err is an *APIError for a missing or
// expired credential.
func IsUnauthorized(err error) bool {
	apiErr, ok := errAs(err)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

func errAs(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

type requestOptions struct {
	query   url.Values
	headers map[string]string
}

// do issues one API call. A non-nil body is JSON encoded; a non-nil out has
// the success envelope's data field decoded into it.
func (c *Client) do(ctx context.Context, method, path string, opts requestOptions, body, out any) error {
	resp, raw, err := c.send(ctx, method, path, opts, body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// doRaw issues one API call and returns the response body verbatim, for
// endpoints that serve binary payloads instead of the JSON envelope.
func (c *Client) doRaw(ctx context.Context, method, path string, opts requestOptions) ([]byte, error) {
	resp, raw, err := c.send(ctx, method, path, opts, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp.StatusCode, raw)
	}
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, path string, opts requestOptions, body any) (*http.Response, []byte, error) {
	target := c.baseURL.JoinPath(path)
	if len(opts.query) > 0 {
		target.RawQuery = opts.query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, value := range opts.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp, raw, nil
}

func decodeAPIError(status int, raw []byte) error {
	var envelope struct {
		Error struct {
			Code    string          `json:"code"`
			Message string          `json:"message"`
			Details json.RawMessage `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
		message := strings.TrimSpace(string(raw))
		if len(message) > 512 {
			message = message[:512]
		}
		return &APIError{StatusCode: status, Message: message}
	}

	apiErr := &APIError{
		StatusCode: status,
		Code:       envelope.Error.Code,
		Message:    envelope.Error.Message,
	}
	if len(envelope.Error.Details) > 0 {
		var details map[string]any
		if err := json.Unmarshal(envelope.Error.Details, &details); err == nil {
			apiErr.Details = details
		}
	}
	return apiErr
}
