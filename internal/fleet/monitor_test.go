package fleet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand/deckhand/internal/models"
)

type fakeAPI struct {
	mu sync.Mutex

	agents    []models.Agent
	listErr   error
	alerts    map[string][]models.Alert
	alertErrs map[string]error
	// counts overrides the derived alert count per agent, standing in for
	// an authority whose listing pages but whose count endpoint is exact.
	counts map[string]int

	listCalls  int
	alertCalls map[string]int
	countCalls map[string]int
	resolved   []string
	commands   []string
	params     []map[string]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		alerts:     make(map[string][]models.Alert),
		alertErrs:  make(map[string]error),
		counts:     make(map[string]int),
		alertCalls: make(map[string]int),
		countCalls: make(map[string]int),
	}
}

func (f *fakeAPI) ListAgents(ctx context.Context, filter AgentFilter) (AgentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return AgentPage{}, f.listErr
	}
	agents := f.agents
	if filter.Limit > 0 && len(agents) > filter.Limit {
		agents = agents[:filter.Limit]
	}
	return AgentPage{Agents: agents, Total: len(f.agents)}, nil
}

func (f *fakeAPI) ListAlerts(ctx context.Context, agentID string, filter AlertFilter) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alertCalls[agentID]++
	if err := f.alertErrs[agentID]; err != nil {
		return nil, err
	}
	var out []models.Alert
	for _, alert := range f.alerts[agentID] {
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if filter.Resolved != nil && alert.Resolved != *filter.Resolved {
			continue
		}
		out = append(out, alert)
	}
	return out, nil
}

func (f *fakeAPI) CountAlerts(ctx context.Context, agentID string, filter AlertFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls[agentID]++
	if err := f.alertErrs[agentID]; err != nil {
		return 0, err
	}
	if count, ok := f.counts[agentID]; ok {
		return count, nil
	}
	count := 0
	for _, alert := range f.alerts[agentID] {
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if filter.Resolved != nil && alert.Resolved != *filter.Resolved {
			continue
		}
		count++
	}
	return count, nil
}

func (f *fakeAPI) ResolveAlert(ctx context.Context, agentID, alertID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolved = append(f.resolved, agentID+"/"+alertID)
	return nil
}

func (f *fakeAPI) ExecuteCommand(ctx context.Context, agentID, command string, params map[string]string) (CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, agentID+": "+command)
	f.params = append(f.params, params)
	return CommandResult{Output: "ok", ExitCode: 0}, nil
}

func newTestMonitor(t *testing.T, api API) *Monitor {
	t.Helper()
	return NewMonitor(api, log.New(testWriter{t}, "", 0))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func agentsWithStatus(counts map[models.AgentStatus]int) []models.Agent {
	var out []models.Agent
	i := 0
	for status, n := range counts {
		for j := 0; j < n; j++ {
			out = append(out, models.Agent{ID: fmt.Sprintf("agent-%d", i), Status: status})
			i++
		}
	}
	return out
}

func TestStatsCountsByStatus(t *testing.T) {
	api := newFakeAPI()
	api.agents = agentsWithStatus(map[models.AgentStatus]int{
		models.AgentActive:      5,
		models.AgentOffline:     2,
		models.AgentError:       1,
		models.AgentMaintenance: 1,
	})
	monitor := newTestMonitor(t, api)

	stats, err := monitor.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, stats.Total)
	assert.Equal(t, 5, stats.Active)
	assert.Equal(t, 2, stats.Offline)
	assert.Equal(t, 1, stats.Error)
	assert.Equal(t, 1, stats.Maintenance)
}

func TestStatsPartialAlertFailures(t *testing.T) {
	api := newFakeAPI()
	unresolvedAlert := models.Alert{Severity: models.SeverityWarning, Resolved: false}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("agent-%d", i)
		api.agents = append(api.agents, models.Agent{ID: id, Status: models.AgentActive})
		api.alerts[id] = []models.Alert{unresolvedAlert, {Resolved: true}}
	}
	// Two agents fail their alert query; they are excluded from the total
	// without failing the statistic.
	api.alertErrs["agent-3"] = errors.New("timeout")
	api.alertErrs["agent-7"] = errors.New("timeout")

	monitor := newTestMonitor(t, api)
	stats, err := monitor.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 8, stats.TotalUnresolvedAlerts)
}

func TestStatsUsesCountEndpoint(t *testing.T) {
	api := newFakeAPI()
	api.agents = []models.Agent{{ID: "agent-0", Status: models.AgentActive}}
	// The listing shows one unresolved alert but the authority's count says
	// five; the statistic must trust the count.
	api.alerts["agent-0"] = []models.Alert{{Resolved: false}}
	api.counts["agent-0"] = 5

	monitor := newTestMonitor(t, api)
	stats, err := monitor.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalUnresolvedAlerts)
	assert.Equal(t, 1, api.countCalls["agent-0"])
	assert.Zero(t, api.alertCalls["agent-0"])
}

func TestHealthScore(t *testing.T) {
	cases := []struct {
		name   string
		active int
		total  int
		want   int
	}{
		{"empty fleet is healthy", 0, 0, 100},
		{"all active", 10, 10, 100},
		{"seven of ten", 7, 10, 70},
		{"none active", 0, 5, 0},
		{"rounds to nearest", 2, 3, 67},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := healthScore(models.AgentStats{Total: tc.total, Active: tc.active})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTrayStatusText(t *testing.T) {
	cases := []struct {
		name  string
		stats models.AgentStats
		want  string
	}{
		{"no agents", models.AgentStats{}, "No agents deployed"},
		{"healthy at boundary", models.AgentStats{Total: 10, Active: 9, Offline: 1}, "All systems operational (9/10)"},
		{"degraded at boundary", models.AgentStats{Total: 10, Active: 7, Offline: 3}, "Some issues detected (7/10)"},
		{"critical", models.AgentStats{Total: 10, Active: 5, Offline: 3, Error: 2}, "Critical: 5 agents down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, trayStatusText(tc.stats))
		})
	}
}

func TestHasCriticalAlertsShortCircuits(t *testing.T) {
	api := newFakeAPI()
	for i := 0; i < 5; i++ {
		api.agents = append(api.agents, models.Agent{ID: fmt.Sprintf("agent-%d", i), Status: models.AgentActive})
	}
	api.alerts["agent-1"] = []models.Alert{{Severity: models.SeverityCritical, Resolved: false}}

	monitor := newTestMonitor(t, api)
	assert.True(t, monitor.HasCriticalAlerts(context.Background()))

	// The scan stopped at the first hit.
	assert.Equal(t, 1, api.alertCalls["agent-0"])
	assert.Equal(t, 1, api.alertCalls["agent-1"])
	assert.Zero(t, api.alertCalls["agent-2"])
}

func TestHasCriticalAlertsNegativeCases(t *testing.T) {
	t.Run("resolved criticals do not count", func(t *testing.T) {
		api := newFakeAPI()
		api.agents = []models.Agent{{ID: "agent-0", Status: models.AgentActive}}
		api.alerts["agent-0"] = []models.Alert{{Severity: models.SeverityCritical, Resolved: true}}
		assert.False(t, newTestMonitor(t, api).HasCriticalAlerts(context.Background()))
	})

	t.Run("list failure reports false", func(t *testing.T) {
		api := newFakeAPI()
		api.listErr = errors.New("unreachable")
		assert.False(t, newTestMonitor(t, api).HasCriticalAlerts(context.Background()))
	})

	t.Run("per-agent failure skips that agent", func(t *testing.T) {
		api := newFakeAPI()
		api.agents = []models.Agent{
			{ID: "agent-0", Status: models.AgentActive},
			{ID: "agent-1", Status: models.AgentActive},
		}
		api.alertErrs["agent-0"] = errors.New("timeout")
		api.alerts["agent-1"] = []models.Alert{{Severity: models.SeverityCritical, Resolved: false}}
		assert.True(t, newTestMonitor(t, api).HasCriticalAlerts(context.Background()))
	})
}

func TestMonitorPassthroughs(t *testing.T) {
	api := newFakeAPI()
	api.agents = []models.Agent{{ID: "agent-0", Status: models.AgentActive}}
	monitor := newTestMonitor(t, api)
	ctx := context.Background()

	page, err := monitor.Agents(ctx, AgentFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	require.NoError(t, monitor.ResolveAlert(ctx, "agent-0", "alert-9"))
	assert.Equal(t, []string{"agent-0/alert-9"}, api.resolved)

	result, err := monitor.ExecuteCommand(ctx, "agent-0", "restart", map[string]string{"service": "telemetry"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Output)
	assert.Equal(t, []string{"agent-0: restart"}, api.commands)
	require.Len(t, api.params, 1)
	assert.Equal(t, map[string]string{"service": "telemetry"}, api.params[0])
}
