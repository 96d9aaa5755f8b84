// Package models provides data structures and constants for deckhand.
//
// This package contains the core domain models used throughout deckhand:
//   - Product: A catalog entry describing one backend/frontend container pair
//   - License: The locally persisted license record
//   - Agent / Alert: Read-only projections of the remote monitoring authority
//
// All models are designed for database persistence and JSON serialization.
package models

import "time"

// Tier is an ordered license level gating product access.
//
// Ordering: trial < starter < professional < enterprise < unlimited.
// Enterprise and unlimited tiers entitle every catalog product regardless
// of the license's product list.
type Tier string

const (
	TierTrial        Tier = "trial"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
	TierUnlimited    Tier = "unlimited"
)

var tierRank = map[Tier]int{
	TierTrial:        0,
	TierStarter:      1,
	TierProfessional: 2,
	TierEnterprise:   3,
	TierUnlimited:    4,
}

// Known reports whether t is a recognized tier value.
func (t Tier) Known() bool {
	_, ok := tierRank[t]
	return ok
}

// AtLeast reports whether t ranks at or above other.
// Unknown tiers rank below every known tier.
func (t Tier) AtLeast(other Tier) bool {
	return tierRank[t] >= tierRank[other]
}

// EntitlesAll reports whether the tier grants access to every catalog
// product without consulting the license's product list.
func (t Tier) EntitlesAll() bool {
	return t == TierEnterprise || t == TierUnlimited
}

// Product is an immutable catalog entry loaded at startup.
//
// Each product runs as a backend/frontend container pair whose names are
// derived from the product id ("<id>-backend", "<id>-frontend"). Host ports
// are unique across the catalog; uniqueness is enforced at load time.
type Product struct {
	ID           string
	Name         string
	Category     string
	BackendPort  int
	FrontendPort int
	MinTier      Tier
}

// BackendContainer returns the deterministic backend container name.
func (p Product) BackendContainer() string {
	return p.ID + "-backend"
}

// FrontendContainer returns the deterministic frontend container name.
func (p Product) FrontendContainer() string {
	return p.ID + "-frontend"
}

// ProductStatus summarizes the runtime state of a product's container pair.
// The backend container is the authoritative half of the pair.
type ProductStatus string

const (
	// ProductRunning indicates the backend container is running.
	ProductRunning ProductStatus = "running"
	// ProductStopped indicates the backend container is stopped or absent.
	ProductStopped ProductStatus = "stopped"
	// ProductError indicates the runtime call itself failed.
	ProductError ProductStatus = "error"
)

// License is the locally persisted license record. Exactly one license is
// active per machine; activation replaces the record wholesale.
//
// ExpiresAt is zero for non-expiring tiers. TrialEndsAt is set only when
// IsTrial is true. Products is ignored for tiers where EntitlesAll is true.
type License struct {
	Key          string            `json:"key"`
	Tier         Tier              `json:"tier"`
	Email        string            `json:"email,omitempty"`
	Organization string            `json:"organization,omitempty"`
	ExpiresAt    time.Time         `json:"expires_at,omitzero"`
	Products     []string          `json:"products,omitempty"`
	MaxUsers     int               `json:"max_users,omitempty"`
	Features     map[string]string `json:"features,omitempty"`
	IsTrial      bool              `json:"is_trial"`
	TrialEndsAt  time.Time         `json:"trial_ends_at,omitzero"`
}

// Entitles reports whether the license grants access to productID.
// The check is purely local and never touches the authority.
func (l License) Entitles(productID string) bool {
	if l.Tier.EntitlesAll() {
		return true
	}
	for _, id := range l.Products {
		if id == productID {
			return true
		}
	}
	return false
}

// AgentStatus is the remote monitoring authority's agent state.
type AgentStatus string

const (
	AgentActive      AgentStatus = "ACTIVE"
	AgentOffline     AgentStatus = "OFFLINE"
	AgentError       AgentStatus = "ERROR"
	AgentMaintenance AgentStatus = "MAINTENANCE"
)

// Agent is a read-only projection of a remotely monitored host. Agents are
// observed, not orchestrated; deckhand holds no persistent cache of them.
type Agent struct {
	ID       string      `json:"id"`
	Hostname string      `json:"hostname,omitempty"`
	Status   AgentStatus `json:"status"`
	LastSeen time.Time   `json:"last_seen,omitempty"`
}

// AlertSeverity classifies monitoring alerts.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityError    AlertSeverity = "ERROR"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// Alert is a single monitoring alert attached to an agent.
type Alert struct {
	ID       string        `json:"id"`
	AgentID  string        `json:"agent_id"`
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message,omitempty"`
	Resolved bool          `json:"resolved"`
}

// AgentStats aggregates fleet-wide agent counts and the unresolved alert
// total. Agents whose alert-count query failed are excluded from
// TotalUnresolvedAlerts (best-effort aggregation).
type AgentStats struct {
	Total                 int `json:"total"`
	Active                int `json:"active"`
	Offline               int `json:"offline"`
	Error                 int `json:"error"`
	Maintenance           int `json:"maintenance"`
	TotalUnresolvedAlerts int `json:"total_unresolved_alerts"`
}

// HostSummary describes the container runtime host. Returned whole or not
// at all so callers can distinguish "no data" from "zero resources".
type HostSummary struct {
	Containers        int    `json:"containers"`
	ContainersRunning int    `json:"containers_running"`
	ContainersStopped int    `json:"containers_stopped"`
	Images            int    `json:"images"`
	CPUs              int    `json:"cpus"`
	MemoryBytes       int64  `json:"memory_bytes"`
	ServerVersion     string `json:"server_version,omitempty"`
	OperatingSystem   string `json:"operating_system,omitempty"`
}
