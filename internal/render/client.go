package render

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

// Client renders diagrams through a remote POST /api/svg endpoint.
// A nil HTTPClient uses http.DefaultClient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SVGRequest is the body accepted by the diagram endpoint
type SVGRequest struct {
	DBML string `json:"dbml"`
}

// ErrorResponse is the JSON body returned on failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// Render posts dbml and returns the SVG document
func (c *Client) Render(ctx context.Context, dbml string) ([]byte, error) {
	body, err := json.Marshal(SVGRequest{DBML: dbml})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/svg", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call diagram endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("diagram endpoint returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("diagram endpoint returned %d", resp.StatusCode)
	}

	return data, nil
}
