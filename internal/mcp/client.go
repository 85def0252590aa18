package mcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/rehanumarkhan/tele-monitor/internal/api"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/usecase"
)

// DefaultAPIURL is used when MONITOR_API_URL is not set
const DefaultAPIURL = "http://127.0.0.1:8080"

// Client is the HTTP client for the monitor API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-200 answer from the API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// ============ Keywords ============

// ListKeywords returns the monitored keywords
func (c *Client) ListKeywords(ctx context.Context) ([]string, error) {
	var result struct {
		Keywords []string `json:"keywords"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/keywords", nil, &result); err != nil {
		return nil, err
	}
	return result.Keywords, nil
}

// AddKeyword adds a keyword and returns its normalized form
func (c *Client) AddKeyword(ctx context.Context, keyword string) (string, error) {
	var result struct {
		Keyword string `json:"keyword"`
	}
	body := api.AddKeywordRequest{Keyword: keyword}
	if err := c.do(ctx, http.MethodPost, "/api/keywords", body, &result); err != nil {
		return "", err
	}
	return result.Keyword, nil
}

// RemoveKeyword removes a keyword
func (c *Client) RemoveKeyword(ctx context.Context, keyword string) (string, error) {
	var result struct {
		Keyword string `json:"keyword"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/keywords/"+url.PathEscape(keyword), nil, &result); err != nil {
		return "", err
	}
	return result.Keyword, nil
}

// ============ Reports ============

// Report runs a detailed report; kind is keyword, date or chat
func (c *Client) Report(ctx context.Context, kind, value string) (*api.DetailResponse, error) {
	var result api.DetailResponse
	path := fmt.Sprintf("/api/reports/%s/%s", kind, url.PathEscape(value))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendDailySummary forces the daily summary
func (c *Client) SendDailySummary(ctx context.Context) (*api.SummaryResponse, error) {
	var result api.SummaryResponse
	if err := c.do(ctx, http.MethodPost, "/api/reports/daily", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendTrendReport sends the trend chart
func (c *Client) SendTrendReport(ctx context.Context) (*api.TrendResponse, error) {
	var result api.TrendResponse
	if err := c.do(ctx, http.MethodPost, "/api/reports/trend", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats returns monitor counters
func (c *Client) Stats(ctx context.Context) (*usecase.Stats, error) {
	var result usecase.Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ============ HTTP Helpers ============

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	// Report routes answer 400 with a usable body for invalid input.
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &apiErr) == nil {
			if apiErr.Error != "" {
				msg = apiErr.Error
			} else if apiErr.Message != "" {
				msg = apiErr.Message
			}
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
