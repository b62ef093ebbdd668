package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/rs-systems/healthwatch/internal/models"
)

// Client talks to a running healthwatch control surface over its HTTP API.
// It authenticates with the same API key the server is configured with.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient() (*Client, error) {
	baseURL := os.Getenv("HEALTHWATCH_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	apiKey := os.Getenv("HEALTHWATCH_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("HEALTHWATCH_API_KEY environment variable is not set")
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (c *Client) HealthSummary() (*models.SystemHealthSummary, error) {
	var summary models.SystemHealthSummary
	if err := c.get("/api/v1/health/summary", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) RunCycle() (*models.CycleReport, error) {
	var report models.CycleReport
	if err := c.post("/api/v1/monitor/run", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (c *Client) RunComponent(component string) (*models.ComponentReport, error) {
	var report models.ComponentReport
	if err := c.post(fmt.Sprintf("/api/v1/monitor/%s/run", component), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// StartMonitoring starts the scheduled loop. A non-positive intervalSeconds
// leaves the server's configured interval in effect.
func (c *Client) StartMonitoring(intervalSeconds int) error {
	var body interface{}
	if intervalSeconds > 0 {
		body = map[string]int{"interval_seconds": intervalSeconds}
	}
	return c.post("/api/v1/monitor/start", body, nil)
}

func (c *Client) StopMonitoring() error {
	return c.post("/api/v1/monitor/stop", nil, nil)
}

func (c *Client) MonitoringStatus() (map[string]interface{}, error) {
	var status map[string]interface{}
	if err := c.get("/api/v1/monitor/status", &status); err != nil {
		return nil, err
	}
	return status, nil
}

func (c *Client) ListAlerts(severity, component string) ([]models.Alert, error) {
	query := url.Values{}
	if severity != "" {
		query.Set("severity", severity)
	}
	if component != "" {
		query.Set("component", component)
	}

	var resp struct {
		Alerts []models.Alert `json:"alerts"`
	}
	if err := c.get("/api/v1/alerts?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

func (c *Client) AlertHistory(limit int) ([]models.Alert, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}

	var resp struct {
		Alerts []models.Alert `json:"alerts"`
	}
	if err := c.get("/api/v1/alerts/history?"+query.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

func (c *Client) AlertSummary() (*models.AlertSummary, error) {
	var summary models.AlertSummary
	if err := c.get("/api/v1/alerts/summary", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) ResolveAlert(alertID string) error {
	return c.post(fmt.Sprintf("/api/v1/alerts/%s/resolve", alertID), nil, nil)
}

func (c *Client) get(endpoint string, v interface{}) error {
	resp, err := c.doRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) post(endpoint string, data, v interface{}) error {
	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %v", err)
		}
		body = bytes.NewReader(jsonData)
	}

	resp, err := c.doRequest(http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if v != nil {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *Client) doRequest(method, endpoint string, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %v", err)
	}
	rel, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %v", err)
	}
	u.Path = path.Join(u.Path, rel.Path)
	u.RawQuery = rel.RawQuery

	req, err := http.NewRequest(method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("API error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}
	return resp, nil
}
