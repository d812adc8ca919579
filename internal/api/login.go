package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"fieldagent/internal/common"
)

// LoginOutcome tags the three login results. Offline success is distinct
// from online success: both persist credentials, but the caller surfaces
// them differently.
type LoginOutcome int

const (
	LoginFailure LoginOutcome = iota
	LoginSuccess
	LoginOffline
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginSuccess:
		return "success"
	case LoginOffline:
		return "offline"
	default:
		return "failure"
	}
}

// LoginResult is the classified outcome of a login attempt.
type LoginResult struct {
	Outcome LoginOutcome
	Message string
}

type loginData struct {
	SessionID string `json:"sessionId"`
}

type loginResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    *loginData `json:"data"`
}

// Login authenticates the device. An unreachable backend is not an error:
// it yields the offline outcome, and the credential-persist path proceeds
// the same way it does for an online success.
func (c *Client) Login(ctx context.Context, token, code string) (*LoginResult, error) {
	resp, err := c.postJSON(ctx, loginPath, token, credentialsPayload{Token: token, DeploymentCode: code})
	if err != nil {
		if errors.Is(err, common.ErrUnavailable) {
			c.log.Warn(ctx, "backend unreachable during login, continuing offline", "error", err)
			return &LoginResult{Outcome: LoginOffline, Message: "backend unreachable"}, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &LoginResult{Outcome: LoginFailure, Message: fmt.Sprintf("rejected (%d)", resp.StatusCode)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if !payload.Success {
		return &LoginResult{Outcome: LoginFailure, Message: payload.Message}, nil
	}

	if payload.Data != nil {
		c.mu.Lock()
		c.sessionID = payload.Data.SessionID
		c.mu.Unlock()
	}
	return &LoginResult{Outcome: LoginSuccess, Message: payload.Message}, nil
}

// SessionID returns the cached session id, empty when none is held.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// InvalidateSession drops the cached session state. Used by the purge
// coordinator on logout; it never fails and performs no network call.
func (c *Client) InvalidateSession(ctx context.Context) error {
	c.mu.Lock()
	had := c.sessionID != ""
	c.sessionID = ""
	c.mu.Unlock()
	if had {
		c.log.Info(ctx, "cached auth session invalidated")
	}
	return nil
}
