// Package api implements the HTTP JSON client for the tracking backend:
// the deployment-code status check, device login, and fix upload.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fieldagent/internal/common"
	"fieldagent/internal/logging"
)

const (
	statusPath = "/api/v1/device/status"
	loginPath  = "/api/v1/device/login"
	trackPath  = "/api/v1/device/track"
)

// Client talks to the tracking backend. It also caches the session id handed
// out at login; the purge coordinator invalidates that cache on logout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	installID  string
	log        logging.Logger

	mu        sync.Mutex
	sessionID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithInstallID attaches the per-install identifier to every request.
func WithInstallID(id string) Option {
	return func(c *Client) {
		c.installID = id
	}
}

// New creates a backend client.
func New(baseURL string, log logging.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("api base url required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// credentialsPayload is the request body shared by status check and login.
type credentialsPayload struct {
	Token          string `json:"token"`
	DeploymentCode string `json:"deploymentCode"`
}

type statusData struct {
	IsLoggedIn bool `json:"isLoggedIn"`
}

type statusResponse struct {
	Success bool        `json:"success"`
	Data    *statusData `json:"data"`
}

func (c *Client) postJSON(ctx context.Context, path string, token string, body any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AccessTokenHeaderName, token)
	}
	if c.installID != "" {
		req.Header.Set(common.InstallIDHeaderName, c.installID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return resp, nil
}

// CheckDeploymentCode asks the backend whether the code is actively in use by
// another device. Any transport or API failure is an error; the caller
// classifies it as an indeterminate result, never as availability.
func (c *Client) CheckDeploymentCode(ctx context.Context, token, code string) (inUse bool, err error) {
	resp, err := c.postJSON(ctx, statusPath, token, credentialsPayload{Token: token, DeploymentCode: code})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("status check returned %d", resp.StatusCode)
	}

	var payload statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, fmt.Errorf("decode status response: %w", err)
	}
	if !payload.Success || payload.Data == nil {
		return false, errors.New("status check unsuccessful")
	}
	return payload.Data.IsLoggedIn, nil
}
