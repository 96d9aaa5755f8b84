package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierKnown(t *testing.T) {
	for _, tier := range []Tier{TierTrial, TierStarter, TierProfessional, TierEnterprise, TierUnlimited} {
		assert.True(t, tier.Known(), "tier %q should be known", tier)
	}
	assert.False(t, Tier("gold").Known())
	assert.False(t, Tier("").Known())
}

func TestTierAtLeast(t *testing.T) {
	assert.True(t, TierProfessional.AtLeast(TierTrial))
	assert.True(t, TierProfessional.AtLeast(TierProfessional))
	assert.False(t, TierStarter.AtLeast(TierEnterprise))

	// Unknown tiers rank below every known tier.
	assert.False(t, Tier("gold").AtLeast(TierStarter))
	assert.True(t, TierTrial.AtLeast(Tier("gold")))
}

func TestTierEntitlesAll(t *testing.T) {
	assert.True(t, TierEnterprise.EntitlesAll())
	assert.True(t, TierUnlimited.EntitlesAll())
	assert.False(t, TierTrial.EntitlesAll())
	assert.False(t, TierProfessional.EntitlesAll())
}

func TestProductContainerNames(t *testing.T) {
	p := Product{ID: "crm"}
	assert.Equal(t, "crm-backend", p.BackendContainer())
	assert.Equal(t, "crm-frontend", p.FrontendContainer())
}

func TestLicenseEntitles(t *testing.T) {
	lic := License{
		Tier:     TierProfessional,
		Products: []string{"crm", "helpdesk"},
	}
	assert.True(t, lic.Entitles("crm"))
	assert.True(t, lic.Entitles("helpdesk"))
	assert.False(t, lic.Entitles("erp"))

	lic.Tier = TierEnterprise
	assert.True(t, lic.Entitles("erp"), "enterprise covers every product")

	empty := License{Tier: TierStarter}
	assert.False(t, empty.Entitles("crm"))
}

func TestLicenseJSONRoundTrip(t *testing.T) {
	lic := License{
		Key:          "PROF-1234-5678-9876",
		Tier:         TierProfessional,
		Email:        "ops@example.com",
		Organization: "Example Corp",
		ExpiresAt:    time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC),
		Products:     []string{"crm"},
		MaxUsers:     25,
	}

	data, err := json.Marshal(lic)
	require.NoError(t, err)

	var got License
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, lic, got)
}

func TestTrialLicenseOmitsPaidFields(t *testing.T) {
	lic := License{
		Tier:        TierTrial,
		IsTrial:     true,
		TrialEndsAt: time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(lic)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "expires_at")
	assert.NotContains(t, raw, "products")
	assert.Equal(t, true, raw["is_trial"])
	assert.Contains(t, raw, "trial_ends_at")
}
