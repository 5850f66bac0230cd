package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kurihiro0119/issue-burndown/internal/domain"
	apperrors "github.com/kurihiro0119/issue-burndown/internal/errors"
)

// Client is the API client for issue-burndown
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BurndownOptions are the optional query parameters of GetBurndown
type BurndownOptions struct {
	Since   *time.Time
	Samples int  // 0 uses the server default
	Raw     bool // exact step values instead of a smoothed grid
}

// GetBurndown retrieves the burndown chart data of a project
func (c *Client) GetBurndown(ctx context.Context, project string, opts BurndownOptions) (*domain.Chart, error) {
	path := fmt.Sprintf("/api/v1/projects/%s/burndown", url.PathEscape(project))

	params := url.Values{}
	if opts.Since != nil {
		params.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}
	if opts.Samples > 0 {
		params.Set("samples", strconv.Itoa(opts.Samples))
	}
	if opts.Raw {
		params.Set("raw", "true")
	}

	var response struct {
		Data *domain.Chart `json:"data"`
	}
	if err := c.get(ctx, path, params, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ChartURL returns the URL of a project's HTML chart
func (c *Client) ChartURL(project string) string {
	return fmt.Sprintf("%s/api/v1/projects/%s/burndown/chart", c.baseURL, url.PathEscape(project))
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

// errorResponse is the error body written by the API
type errorResponse struct {
	Error struct {
		Code    apperrors.ErrCode `json:"code"`
		Message string            `json:"message"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Code != "" {
			return &apperrors.AppError{Code: apiErr.Error.Code, Message: apiErr.Error.Message}
		}
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
