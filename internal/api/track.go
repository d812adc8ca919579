package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fieldagent/internal/common"
)

// FixUpload is one location fix on the wire.
type FixUpload struct {
	ID         string    `json:"id"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Accuracy   float64   `json:"accuracy"`
	RecordedAt time.Time `json:"recordedAt"`
}

type trackRequest struct {
	DeploymentCode string      `json:"deploymentCode"`
	Fixes          []FixUpload `json:"fixes"`
}

type trackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UploadFixes sends a batch of buffered fixes. The batch is accepted as a
// whole or not at all; the caller keeps the fixes buffered on error.
func (c *Client) UploadFixes(ctx context.Context, token, code string, fixes []FixUpload) error {
	if len(fixes) == 0 {
		return nil
	}

	resp, err := c.postJSON(ctx, trackPath, token, trackRequest{DeploymentCode: code, Fixes: fixes})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: track upload returned %d", common.ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("track upload returned %d", resp.StatusCode)
	}

	var payload trackResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode track response: %w", err)
	}
	if !payload.Success {
		return fmt.Errorf("track upload rejected: %s", payload.Message)
	}
	return nil
}
