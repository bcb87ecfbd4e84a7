package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the main RateWatch API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // API base URL (e.g., "http://localhost:8080")
	APIKey     string        // Optional API key sent as X-API-Key
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// envelope is the success wrapper every API response uses
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// errorEnvelope is the failure wrapper every API response uses
type errorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

// NewClient creates a new RateWatch API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		apiKey:     cfg.APIKey,
	}
}

// doRequest performs an HTTP request and decodes the data field of the
// response envelope into result
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errEnv errorEnvelope
		if err := json.Unmarshal(respBody, &errEnv); err != nil || errEnv.Error.Message == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		}
		errEnv.Error.StatusCode = resp.StatusCode
		return &errEnv.Error
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// DoRaw performs a request against an arbitrary API path
func (c *Client) DoRaw(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.doRequest(ctx, method, path, body, result)
}

// Monitoring returns the monitoring service
func (c *Client) Monitoring() *MonitoringService {
	return &MonitoringService{client: c}
}

// Alerts returns the alert management service
func (c *Client) Alerts() *AlertService {
	return &AlertService{client: c}
}

// Jobs returns the job queue service
func (c *Client) Jobs() *JobService {
	return &JobService{client: c}
}
