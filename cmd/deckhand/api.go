// ABOUTME: HTTP client for communicating with deckhandd over its Unix socket.
// ABOUTME: Provides type-safe request/response structures and JSON serialization.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const defaultSocketPath = "/run/deckhand/deckhandd.sock"

const maxJSONOutputBytes = 4 << 20

// apiClient is an HTTP client for communicating with deckhandd over a
// Unix socket.
type apiClient struct {
	socketPath string
	httpClient *http.Client
	timeout    time.Duration
}

// apiError represents an error response from the deckhandd API.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type hostResponse struct {
	Version          string `json:"version"`
	Commit           string `json:"commit,omitempty"`
	RuntimeAvailable bool   `json:"runtime_available"`
}

type productResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category,omitempty"`
	BackendPort  int    `json:"backend_port"`
	FrontendPort int    `json:"frontend_port"`
	MinTier      string `json:"min_tier"`
	Status       string `json:"status"`
	Entitled     bool   `json:"entitled"`
}

type productListResponse struct {
	Products []productResponse `json:"products"`
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type productStatusResponse struct {
	ProductID string `json:"product_id"`
	Status    string `json:"status"`
}

type runtimeSummaryResponse struct {
	Available bool `json:"available"`
	Summary   *struct {
		Containers        int    `json:"containers"`
		ContainersRunning int    `json:"containers_running"`
		ContainersStopped int    `json:"containers_stopped"`
		Images            int    `json:"images"`
		CPUs              int    `json:"cpus"`
		MemoryBytes       int64  `json:"memory_bytes"`
		ServerVersion     string `json:"server_version,omitempty"`
		OperatingSystem   string `json:"operating_system,omitempty"`
	} `json:"summary,omitempty"`
}

type licenseResponse struct {
	Tier          string   `json:"tier"`
	Key           string   `json:"key,omitempty"`
	Email         string   `json:"email,omitempty"`
	Organization  string   `json:"organization,omitempty"`
	Products      []string `json:"products,omitempty"`
	IsTrial       bool     `json:"is_trial"`
	ExpiresAt     string   `json:"expires_at,omitempty"`
	TrialEndsAt   string   `json:"trial_ends_at,omitempty"`
	DaysRemaining int      `json:"days_remaining"`
	Valid         bool     `json:"valid"`
}

type activateRequest struct {
	Key string `json:"key"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

type entitlementResponse struct {
	ProductID string `json:"product_id"`
	Entitled  bool   `json:"entitled"`
}

type agentResponse struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname,omitempty"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen,omitempty"`
}

type agentPageResponse struct {
	Agents []agentResponse `json:"agents"`
	Total  int             `json:"total"`
}

type alertResponse struct {
	ID       string `json:"id"`
	AgentID  string `json:"agent_id"`
	Severity string `json:"severity"`
	Message  string `json:"message,omitempty"`
	Resolved bool   `json:"resolved"`
}

type execRequest struct {
	Command    string            `json:"command"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type execResponse struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

type fleetStatsResponse struct {
	Total                 int `json:"total"`
	Active                int `json:"active"`
	Offline               int `json:"offline"`
	Error                 int `json:"error"`
	Maintenance           int `json:"maintenance"`
	TotalUnresolvedAlerts int `json:"total_unresolved_alerts"`
}

type fleetHealthResponse struct {
	Score      int    `json:"score"`
	StatusText string `json:"status_text"`
	Critical   bool   `json:"critical"`
}

type updateCheckResponse struct {
	HasUpdate      bool   `json:"has_update"`
	CurrentVersion string `json:"current_version"`
	Version        string `json:"version,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
	Checksum       string `json:"checksum,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

type eventResponse struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	ProductID string `json:"product_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type eventListResponse struct {
	Events []eventResponse `json:"events"`
}

// newAPIClient creates an API client that speaks HTTP over the daemon's
// Unix socket.
func newAPIClient(socketPath string, timeout time.Duration) *apiClient {
	path := socketPath
	if path == "" {
		path = defaultSocketPath
	}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}
	return &apiClient{
		socketPath: path,
		httpClient: &http.Client{Transport: transport},
		timeout:    timeout,
	}
}

// doJSON sends an HTTP request with an optional JSON payload and returns
// the raw JSON response body.
func (c *apiClient) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://unix"+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s via %s: %w (is deckhandd running?)", method, path, c.socketPath, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONOutputBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return data, nil
}

// parseAPIError converts an HTTP error response into an error, preferring
// the daemon's JSON error message over the bare status.
func parseAPIError(status int, data []byte) error {
	if len(data) > 0 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
	}
	return fmt.Errorf("request failed with status %d", status)
}

func (c *apiClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c == nil || c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// prettyPrintJSON formats JSON data with indentation and writes it to w.
func prettyPrintJSON(w io.Writer, data []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		_, err = w.Write(data)
		return err
	}
	out.WriteByte('\n')
	_, err := w.Write(out.Bytes())
	return err
}
