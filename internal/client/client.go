// Package client is an HTTP client for the authgate API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultUserAgent is sent when no user agent is configured. Tokens are
// bound to it, so login and validate must use the same value.
const DefaultUserAgent = "authgate-client"

// Error is a non-success response from the API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("authgate: status %d: %s", e.StatusCode, e.Message)
}

// Client calls the authgate API with one API key.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New returns a Client for the server at baseURL authenticating with apiKey.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type messageBody struct {
	Message string `json:"message"`
}

// CheckPassword logs in and returns the serialized session token.
func (c *Client) CheckPassword(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/checkpassword", map[string]string{
		"username": username,
		"password": password,
	}, nil, &out)
	return out.Token, err
}

// ChangePassword changes the password of username and returns the server's
// confirmation message.
func (c *Client) ChangePassword(ctx context.Context, username, currentPassword, newPassword, confirmPassword string) (string, error) {
	var out messageBody
	err := c.do(ctx, http.MethodPost, "/changepassword", map[string]string{
		"username":         username,
		"current_password": currentPassword,
		"new_password":     newPassword,
		"confirm_password": confirmPassword,
	}, nil, &out)
	return out.Message, err
}

// RegisterUser creates a user and returns the server's confirmation message.
func (c *Client) RegisterUser(ctx context.Context, username, email, password string) (string, error) {
	var out messageBody
	err := c.do(ctx, http.MethodPost, "/registeruser", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, nil, &out)
	return out.Message, err
}

// ValidateToken asks the server whether token is valid for this client's
// user agent.
func (c *Client) ValidateToken(ctx context.Context, token string) (bool, error) {
	var out struct {
		IsTokenValid bool `json:"is_token_valid"`
	}
	cookie := &http.Cookie{Name: "token", Value: token}
	err := c.do(ctx, http.MethodGet, "/validatetoken", nil, cookie, &out)
	return out.IsTokenValid, err
}

// IssueAPIKey creates a key for deviceName. Requires the admin key.
func (c *Client) IssueAPIKey(ctx context.Context, deviceName string) (string, error) {
	var out struct {
		APIKey string `json:"api_key"`
	}
	err := c.do(ctx, http.MethodPost, "/generateapikey", map[string]string{
		"device_name": deviceName,
	}, nil, &out)
	return out.APIKey, err
}

// DeactivateAPIKey revokes the key of deviceName. Requires the admin key.
func (c *Client) DeactivateAPIKey(ctx context.Context, deviceName string) (string, error) {
	var out messageBody
	err := c.do(ctx, http.MethodPost, "/deactivateapikey", map[string]string{
		"device_name": deviceName,
	}, nil, &out)
	return out.Message, err
}

// Probe checks the configured key against the gate. With admin set it
// checks the admin tier.
func (c *Client) Probe(ctx context.Context, admin bool) (string, error) {
	method := http.MethodGet
	if admin {
		method = http.MethodPost
	}
	var out messageBody
	err := c.do(ctx, method, "/testapiauth", nil, nil, &out)
	return out.Message, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, cookie *http.Cookie, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "API_KEY "+c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg messageBody
		if json.Unmarshal(raw, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(raw))
		}
		return &Error{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
