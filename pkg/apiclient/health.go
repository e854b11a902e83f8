package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Readiness is the daemon's readiness report.
type Readiness struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
	Resources int       `json:"resources"`
	Loaded    int       `json:"loaded"`
	Loading   int       `json:"loading"`
	Failed    int       `json:"failed"`
	Cached    int       `json:"cached"`
}

// Readiness queries the unauthenticated readiness probe. A daemon that
// answers but is not ready returns a report with Ready false and no error.
func (c *Client) Readiness(ctx context.Context) (*Readiness, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health/ready", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, parseError(resp.StatusCode, body)
	}

	var envelope struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
		Error     string    `json:"error"`
		Data      struct {
			Resources int `json:"resources"`
			Loaded    int `json:"loaded"`
			Loading   int `json:"loading"`
			Failed    int `json:"failed"`
			Cached    int `json:"cached"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &Readiness{
		Ready:     envelope.Status == "healthy",
		Timestamp: envelope.Timestamp,
		Error:     envelope.Error,
		Resources: envelope.Data.Resources,
		Loaded:    envelope.Data.Loaded,
		Loading:   envelope.Data.Loading,
		Failed:    envelope.Data.Failed,
		Cached:    envelope.Data.Cached,
	}, nil
}
