package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/google/uuid"
)

const maxResponseBytes = 4 << 20

// UserAgent is sent with every backend request
var UserAgent = "libra-session/dev"

// LoginResponse is the backend answer to a successful login
type LoginResponse struct {
	AccessToken string
	User        map[string]any
}

// RegisterRequest carries the registration form fields
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Mode      string `json:"mode"`
}

// MeResponse is the answer of the /api/auth/me token check
type MeResponse struct {
	Authed bool
	User   map[string]any
}

// APIClient talks to the backend REST API
type APIClient struct {
	baseURL string
	http    *http.Client
}

// APIOption customizes an APIClient
type APIOption func(*APIClient)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *APIClient) {
		a.http = c
	}
}

// NewAPIClient creates a client for cfg.BaseURL. The cookie jar stands in for
// the browser's credentials: "include" on refresh and logout.
func NewAPIClient(cfg APIConfig, opts ...APIOption) (*APIClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	c := &APIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// Login posts credentials to /api/auth/login
func (c *APIClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var obj map[string]any
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/auth/login", "", body, &obj); err != nil {
		return nil, err
	}

	resp := &LoginResponse{
		AccessToken: firstString(obj["access_token"], obj["token"]),
	}
	resp.User, _ = obj["user"].(map[string]any)
	return resp, nil
}

// Register posts the registration form to /api/auth/register
func (c *APIClient) Register(ctx context.Context, req RegisterRequest) (map[string]any, error) {
	var obj map[string]any
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/auth/register", "", req, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Refresh asks the backend for a new access token from its session cookie
func (c *APIClient) Refresh(ctx context.Context) (string, error) {
	var obj map[string]any
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/auth/refresh", "", nil, &obj); err != nil {
		return "", err
	}
	return firstString(obj["access_token"]), nil
}

// Logout ends the server-side session
func (c *APIClient) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", "", nil, nil)
}

// Me checks token against /api/auth/me
func (c *APIClient) Me(ctx context.Context, token string) (*MeResponse, error) {
	var obj map[string]any
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/auth/me", token, nil, &obj); err != nil {
		return nil, err
	}
	me := &MeResponse{Authed: true}
	if v, ok := obj["authed"].(bool); ok {
		me.Authed = v
	}
	me.User, _ = obj["user"].(map[string]any)
	return me, nil
}

// errMalformedBody marks a 2xx answer whose body is not a JSON object
var errMalformedBody = errors.New("invalid JSON response")

// doJSON sends body as JSON and decodes a JSON object answer into out.
// Non-2xx answers become *APIError.
func (c *APIClient) doJSON(ctx context.Context, method, url, token string, body any, out *map[string]any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	LogDebug("%s %s (request %s)", method, url, requestID)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method: method,
			URL:    url,
			Status: resp.StatusCode,
			Detail: errorDetail(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	obj, err := decodeObject(data)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, url, errMalformedBody, err)
	}
	*out = obj
	return nil
}

// errorDetail picks the message of a failed response: detail (string, or
// its JSON text), then reply. Empty when the body carries neither.
func errorDetail(data []byte) string {
	obj, err := decodeObject(data)
	if err == nil && obj != nil {
		if d, ok := obj["detail"]; ok && d != nil {
			if s, ok := d.(string); ok {
				return s
			}
			if enc, err := json.Marshal(d); err == nil {
				return string(enc)
			}
		}
		if r := firstString(obj["reply"]); r != "" {
			return r
		}
	}
	return ""
}
