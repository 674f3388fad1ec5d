// Package unifi implements the HTTP client for a UniFi network controller.
package unifi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Config holds connection settings for a single controller.
type Config struct {
	Name     string
	Host     string
	Site     string
	Username string
	Password string
	Insecure bool
	Timeout  time.Duration
}

// Client talks to one UniFi controller using a cookie session.
type Client struct {
	config Config
	client *http.Client
}

// New creates a controller client. It does not log in; call Login first.
func New(cfg Config) (*Client, error) {
	if cfg.Site == "" {
		cfg.Site = "default"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.Insecure},
	}
	return &Client{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
			Jar:       jar,
		},
	}, nil
}

// Name returns the configured controller name.
func (c *Client) Name() string { return c.config.Name }

// Login authenticates and stores the session cookie.
func (c *Client) Login(ctx context.Context) error {
	creds, err := json.Marshal(map[string]string{
		"username": c.config.Username,
		"password": c.config.Password,
	})
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	url := strings.TrimRight(c.config.Host, "/") + "/api/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(creds))
	if err != nil {
		return fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("login request: %w", err)}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Reason: fmt.Sprintf("login rejected with status %d", resp.StatusCode)}
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return &TransientError{Err: fmt.Errorf("login failed with status %d", resp.StatusCode)}
	default:
		return &APIError{StatusCode: resp.StatusCode, Endpoint: "/api/login"}
	}
}

// Logout ends the controller session. Errors are non-fatal for callers.
func (c *Client) Logout(ctx context.Context) error {
	url := strings.TrimRight(c.config.Host, "/") + "/api/logout"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("creating logout request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return nil
}

// Devices fetches the raw device list for the configured site.
func (c *Client) Devices(ctx context.Context) (json.RawMessage, error) {
	return c.apiGet(ctx, fmt.Sprintf("/api/s/%s/stat/device", c.config.Site))
}

// Clients fetches the raw active-client list for the configured site.
func (c *Client) Clients(ctx context.Context) (json.RawMessage, error) {
	return c.apiGet(ctx, fmt.Sprintf("/api/s/%s/stat/sta", c.config.Site))
}

// apiEnvelope wraps the standard UniFi API response.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) apiGet(ctx context.Context, path string) (json.RawMessage, error) {
	url := strings.TrimRight(c.config.Host, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", path, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("requesting %s: %w", path, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10 MB max
	if err != nil {
		return nil, &TransientError{Err: fmt.Errorf("reading response from %s: %w", path, err)}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{Reason: "session expired"}
	default:
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Endpoint:   path,
		}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parsing response from %s: %w", path, err)
	}
	return envelope.Data, nil
}
