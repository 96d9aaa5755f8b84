package fleet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand/deckhand/internal/models"
)

func TestClientListAgents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/agents", r.URL.Path)
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		assert.Equal(t, "ACTIVE", r.URL.Query().Get("status"))
		_ = json.NewEncoder(w).Encode(AgentPage{
			Agents: []models.Agent{{ID: "agent-0", Status: models.AgentActive}},
			Total:  42,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-123")
	page, err := client.ListAgents(context.Background(), AgentFilter{Limit: 1000, Status: models.AgentActive})
	require.NoError(t, err)
	assert.Equal(t, 42, page.Total)
	require.Len(t, page.Agents, 1)
	assert.Equal(t, "agent-0", page.Agents[0].ID)
}

func TestClientListAlertsFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/agents/agent-0/alerts", r.URL.Path)
		assert.Equal(t, "CRITICAL", r.URL.Query().Get("severity"))
		assert.Equal(t, "false", r.URL.Query().Get("resolved"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"alerts": []models.Alert{{ID: "alert-1", AgentID: "agent-0", Severity: models.SeverityCritical}},
		})
	}))
	defer server.Close()

	unresolved := false
	client := NewClient(server.URL, "")
	alerts, err := client.ListAlerts(context.Background(), "agent-0", AlertFilter{
		Severity: models.SeverityCritical,
		Resolved: &unresolved,
	})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "alert-1", alerts[0].ID)
}

func TestClientCountAlerts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/agents/agent-0/alerts/count", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("resolved"))
		_ = json.NewEncoder(w).Encode(map[string]int{"count": 7})
	}))
	defer server.Close()

	unresolved := false
	client := NewClient(server.URL, "")
	count, err := client.CountAlerts(context.Background(), "agent-0", AlertFilter{Resolved: &unresolved})
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	_, err = client.CountAlerts(context.Background(), "", AlertFilter{})
	require.Error(t, err)
}

func TestClientResolveAlert(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	require.NoError(t, client.ResolveAlert(context.Background(), "agent-0", "alert-1"))
	assert.Equal(t, "/api/agents/agent-0/alerts/alert-1/resolve", gotPath)

	require.Error(t, client.ResolveAlert(context.Background(), "", "alert-1"))
}

func TestClientExecuteCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/agents/agent-0/commands/execute", r.URL.Path)
		var req struct {
			Command    string            `json:"command"`
			Parameters map[string]string `json:"parameters"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "restart", req.Command)
		assert.Equal(t, map[string]string{"service": "telemetry"}, req.Parameters)
		_ = json.NewEncoder(w).Encode(CommandResult{Output: "restarted", ExitCode: 0})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	result, err := client.ExecuteCommand(context.Background(), "agent-0", "restart", map[string]string{"service": "telemetry"})
	require.NoError(t, err)
	assert.Equal(t, "restarted", result.Output)
}

func TestClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.ListAgents(context.Background(), AgentFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
