package daemon

import (
	"time"

	"github.com/deckhand/deckhand/internal/models"
)

type V1ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type V1HostResponse struct {
	Version          string `json:"version"`
	Commit           string `json:"commit,omitempty"`
	RuntimeAvailable bool   `json:"runtime_available"`
}

type V1Product struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Category     string               `json:"category,omitempty"`
	BackendPort  int                  `json:"backend_port"`
	FrontendPort int                  `json:"frontend_port"`
	MinTier      models.Tier          `json:"min_tier"`
	Status       models.ProductStatus `json:"status"`
	Entitled     bool                 `json:"entitled"`
}

type V1ProductListResponse struct {
	Products []V1Product `json:"products"`
}

type V1ProductActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type V1ProductStatusResponse struct {
	ProductID string               `json:"product_id"`
	Status    models.ProductStatus `json:"status"`
}

type V1RuntimeSummaryResponse struct {
	Available bool                `json:"available"`
	Summary   *models.HostSummary `json:"summary,omitempty"`
}

type V1LicenseResponse struct {
	Tier          models.Tier `json:"tier"`
	Key           string      `json:"key,omitempty"`
	Email         string      `json:"email,omitempty"`
	Organization  string      `json:"organization,omitempty"`
	Products      []string    `json:"products,omitempty"`
	IsTrial       bool        `json:"is_trial"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
	TrialEndsAt   *time.Time  `json:"trial_ends_at,omitempty"`
	DaysRemaining int         `json:"days_remaining"`
	Valid         bool        `json:"valid"`
}

type V1ActivateRequest struct {
	Key string `json:"key"`
}

type V1ValidateResponse struct {
	Valid bool `json:"valid"`
}

type V1EntitlementResponse struct {
	ProductID string `json:"product_id"`
	Entitled  bool   `json:"entitled"`
}

type V1ExecRequest struct {
	Command    string            `json:"command"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

type V1FleetHealthResponse struct {
	Score      int    `json:"score"`
	StatusText string `json:"status_text"`
	Critical   bool   `json:"critical"`
}

type V1Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	ProductID string    `json:"product_id,omitempty"`
	Message   string    `json:"message,omitempty"`
}

type V1EventListResponse struct {
	Events []V1Event `json:"events"`
}
