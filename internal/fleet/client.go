package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deckhand/deckhand/internal/models"
)

const defaultClientTimeout = 30 * time.Second

// API is the subset of the monitoring authority consumed by deckhand.
// Client is the production implementation; tests substitute fakes.
type API interface {
	ListAgents(ctx context.Context, filter AgentFilter) (AgentPage, error)
	ListAlerts(ctx context.Context, agentID string, filter AlertFilter) ([]models.Alert, error)
	CountAlerts(ctx context.Context, agentID string, filter AlertFilter) (int, error)
	ResolveAlert(ctx context.Context, agentID, alertID string) error
	ExecuteCommand(ctx context.Context, agentID, command string, params map[string]string) (CommandResult, error)
}

// AgentFilter narrows and paginates agent listings.
type AgentFilter struct {
	Page   int
	Limit  int
	Status models.AgentStatus
	Search string
}

// AgentPage is one page of agents plus the authority's total count.
type AgentPage struct {
	Agents []models.Agent `json:"agents"`
	Total  int            `json:"total"`
}

// AlertFilter narrows alert listings. Resolved is tri-state: nil means
// both resolved and unresolved.
type AlertFilter struct {
	Severity models.AlertSeverity
	Resolved *bool
}

// CommandResult is the authority's response to a command passthrough.
type CommandResult struct {
	Output   string `json:"output"`
	ExitCode int    `json:"exit_code"`
}

// Client talks to the remote monitoring authority. It enforces only a
// transport-level timeout; retry and backoff policy belong to callers.
type Client struct {
	BaseURL    string
	Token      string // Optional bearer token
	HTTPClient *http.Client
}

var _ API = (*Client)(nil)

// NewClient creates a monitoring client for the authority at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: defaultClientTimeout},
	}
}

// ListAgents fetches one page of agents.
func (c *Client) ListAgents(ctx context.Context, filter AgentFilter) (AgentPage, error) {
	params := url.Values{}
	if filter.Page > 0 {
		params.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Status != "" {
		params.Set("status", string(filter.Status))
	}
	if filter.Search != "" {
		params.Set("search", filter.Search)
	}
	endpoint := "/api/agents"
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	var page AgentPage
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return AgentPage{}, err
	}
	return page, nil
}

// ListAlerts fetches alerts for one agent.
func (c *Client) ListAlerts(ctx context.Context, agentID string, filter AlertFilter) ([]models.Alert, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, errors.New("agent id is required")
	}
	params := url.Values{}
	if filter.Severity != "" {
		params.Set("severity", string(filter.Severity))
	}
	if filter.Resolved != nil {
		params.Set("resolved", strconv.FormatBool(*filter.Resolved))
	}
	endpoint := fmt.Sprintf("/api/agents/%s/alerts", url.PathEscape(agentID))
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	var resp struct {
		Alerts []models.Alert `json:"alerts"`
	}
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Alerts, nil
}

// CountAlerts returns the authority's alert count for one agent without
// transferring the alerts themselves, so the result is exact even when the
// listing endpoint pages.
func (c *Client) CountAlerts(ctx context.Context, agentID string, filter AlertFilter) (int, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return 0, errors.New("agent id is required")
	}
	params := url.Values{}
	if filter.Severity != "" {
		params.Set("severity", string(filter.Severity))
	}
	if filter.Resolved != nil {
		params.Set("resolved", strconv.FormatBool(*filter.Resolved))
	}
	endpoint := fmt.Sprintf("/api/agents/%s/alerts/count", url.PathEscape(agentID))
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// ResolveAlert marks an alert resolved on the authority. No local state.
func (c *Client) ResolveAlert(ctx context.Context, agentID, alertID string) error {
	agentID = strings.TrimSpace(agentID)
	alertID = strings.TrimSpace(alertID)
	if agentID == "" || alertID == "" {
		return errors.New("agent id and alert id are required")
	}
	endpoint := fmt.Sprintf("/api/agents/%s/alerts/%s/resolve", url.PathEscape(agentID), url.PathEscape(alertID))
	return c.do(ctx, http.MethodPost, endpoint, nil, nil)
}

// ExecuteCommand forwards a command with optional parameters to an agent
// and returns its result.
func (c *Client) ExecuteCommand(ctx context.Context, agentID, command string, params map[string]string) (CommandResult, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return CommandResult{}, errors.New("agent id is required")
	}
	if strings.TrimSpace(command) == "" {
		return CommandResult{}, errors.New("command is required")
	}
	endpoint := fmt.Sprintf("/api/agents/%s/commands/execute", url.PathEscape(agentID))
	payload := struct {
		Command    string            `json:"command"`
		Parameters map[string]string `json:"parameters,omitempty"`
	}{Command: command, Parameters: params}
	var result CommandResult
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &result); err != nil {
		return CommandResult{}, err
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("monitoring url is not configured")
	}
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("monitoring request failed: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("monitoring authority returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
