// Package fleet aggregates read-only views of the remote monitoring
// authority: agent listings, alert queries, and derived health summaries.
// Nothing here is cached or persisted; every query hits the authority.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/deckhand/deckhand/internal/models"
)

const (
	// statsAgentCap bounds the agent page fetched for fleet statistics.
	statsAgentCap = 1000
	// criticalAgentCap bounds the scan for unresolved critical alerts.
	criticalAgentCap = 100
	// alertFanOut caps concurrent per-agent alert queries.
	alertFanOut = 8

	healthyThreshold  = 90
	degradedThreshold = 70
)

// Monitor computes fleet-wide aggregates on top of the monitoring API.
type Monitor struct {
	api    API
	logger *log.Logger
}

// NewMonitor builds a fleet monitor.
func NewMonitor(api API, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{api: api, logger: logger}
}

// Agents is a passthrough listing with the authority's pagination shape.
func (m *Monitor) Agents(ctx context.Context, filter AgentFilter) (AgentPage, error) {
	if m == nil || m.api == nil {
		return AgentPage{}, errors.New("fleet monitor not configured")
	}
	return m.api.ListAgents(ctx, filter)
}

// AgentAlerts is a passthrough alert listing for one agent.
func (m *Monitor) AgentAlerts(ctx context.Context, agentID string, filter AlertFilter) ([]models.Alert, error) {
	if m == nil || m.api == nil {
		return nil, errors.New("fleet monitor not configured")
	}
	return m.api.ListAlerts(ctx, agentID, filter)
}

// ResolveAlert forwards a resolution to the authority.
func (m *Monitor) ResolveAlert(ctx context.Context, agentID, alertID string) error {
	if m == nil || m.api == nil {
		return errors.New("fleet monitor not configured")
	}
	return m.api.ResolveAlert(ctx, agentID, alertID)
}

// ExecuteCommand forwards a command with optional parameters to an agent.
func (m *Monitor) ExecuteCommand(ctx context.Context, agentID, command string, params map[string]string) (CommandResult, error) {
	if m == nil || m.api == nil {
		return CommandResult{}, errors.New("fleet monitor not configured")
	}
	return m.api.ExecuteCommand(ctx, agentID, command, params)
}

// Stats fetches up to statsAgentCap agents, counts them by status, and sums
// unresolved alerts with one query per agent, at most alertFanOut in
// flight. Agents whose alert query fails are excluded from the alert total
// rather than failing the whole statistic.
func (m *Monitor) Stats(ctx context.Context) (models.AgentStats, error) {
	if m == nil || m.api == nil {
		return models.AgentStats{}, errors.New("fleet monitor not configured")
	}
	page, err := m.api.ListAgents(ctx, AgentFilter{Limit: statsAgentCap})
	if err != nil {
		return models.AgentStats{}, fmt.Errorf("list agents: %w", err)
	}

	stats := models.AgentStats{Total: len(page.Agents)}
	for _, agent := range page.Agents {
		switch agent.Status {
		case models.AgentActive:
			stats.Active++
		case models.AgentOffline:
			stats.Offline++
		case models.AgentError:
			stats.Error++
		case models.AgentMaintenance:
			stats.Maintenance++
		}
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(alertFanOut)
	for _, agent := range page.Agents {
		agent := agent
		group.Go(func() error {
			count, err := m.countUnresolved(groupCtx, agent.ID)
			if err != nil {
				m.logger.Printf("fleet: alert count for agent %s failed, excluding: %v", agent.ID, err)
				return nil
			}
			mu.Lock()
			stats.TotalUnresolvedAlerts += count
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return models.AgentStats{}, err
	}
	return stats, nil
}

// HealthScore returns round(active/total*100), or 100 for an empty fleet.
func (m *Monitor) HealthScore(ctx context.Context) (int, error) {
	stats, err := m.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return healthScore(stats), nil
}

// HasCriticalAlerts scans up to criticalAgentCap agents for unresolved
// CRITICAL alerts, short-circuiting on the first hit. A failed agent list
// reports false rather than an error; this feeds a tray indicator, not an
// audit trail.
func (m *Monitor) HasCriticalAlerts(ctx context.Context) bool {
	if m == nil || m.api == nil {
		return false
	}
	page, err := m.api.ListAgents(ctx, AgentFilter{Limit: criticalAgentCap})
	if err != nil {
		m.logger.Printf("fleet: critical alert scan: %v", err)
		return false
	}
	unresolved := false
	for _, agent := range page.Agents {
		alerts, err := m.api.ListAlerts(ctx, agent.ID, AlertFilter{
			Severity: models.SeverityCritical,
			Resolved: &unresolved,
		})
		if err != nil {
			m.logger.Printf("fleet: critical alert scan for agent %s: %v", agent.ID, err)
			continue
		}
		if len(alerts) > 0 {
			return true
		}
	}
	return false
}

// TrayStatusText renders the tiered one-line fleet summary.
func (m *Monitor) TrayStatusText(ctx context.Context) (string, error) {
	stats, err := m.Stats(ctx)
	if err != nil {
		return "", err
	}
	return trayStatusText(stats), nil
}

// countUnresolved asks the authority for the agent's unresolved alert count
// directly rather than listing and counting, so listing page caps cannot
// skew the total.
func (m *Monitor) countUnresolved(ctx context.Context, agentID string) (int, error) {
	unresolved := false
	return m.api.CountAlerts(ctx, agentID, AlertFilter{Resolved: &unresolved})
}

func healthScore(stats models.AgentStats) int {
	if stats.Total == 0 {
		return 100
	}
	return int(math.Round(float64(stats.Active) / float64(stats.Total) * 100))
}

func trayStatusText(stats models.AgentStats) string {
	if stats.Total == 0 {
		return "No agents deployed"
	}
	score := healthScore(stats)
	switch {
	case score >= healthyThreshold:
		return fmt.Sprintf("All systems operational (%d/%d)", stats.Active, stats.Total)
	case score >= degradedThreshold:
		return fmt.Sprintf("Some issues detected (%d/%d)", stats.Active, stats.Total)
	default:
		return fmt.Sprintf("Critical: %d agents down", stats.Error+stats.Offline)
	}
}
