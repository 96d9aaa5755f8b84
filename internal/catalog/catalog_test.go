package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deckhand/deckhand/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProduct(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	writeProduct(t, dir, "ledger.yaml", `
id: ledger
name: Ledger
category: Business
backend_port: 8101
frontend_port: 3101
min_tier: professional
`)
	writeProduct(t, dir, "pulse.yaml", `
id: pulse
backend_port: 8102
frontend_port: 3102
`)
	writeProduct(t, dir, "notes.txt", "not a product")

	cat, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())

	ledger, ok := cat.Lookup("ledger")
	require.True(t, ok)
	assert.Equal(t, "Ledger", ledger.Name)
	assert.Equal(t, models.TierProfessional, ledger.MinTier)
	assert.Equal(t, "ledger-backend", ledger.BackendContainer())
	assert.Equal(t, "ledger-frontend", ledger.FrontendContainer())

	pulse, ok := cat.Lookup("pulse")
	require.True(t, ok)
	assert.Equal(t, "pulse", pulse.Name)
	assert.Equal(t, models.TierTrial, pulse.MinTier)

	assert.Equal(t, []string{"ledger", "pulse"}, cat.IDs())

	_, ok = cat.Lookup("missing")
	assert.False(t, ok)
}

func TestLoadCatalogRejectsDuplicateID(t *testing.T) {
	dir := t.TempDir()
	writeProduct(t, dir, "a.yaml", "id: ledger\nbackend_port: 8101\nfrontend_port: 3101\n")
	writeProduct(t, dir, "b.yaml", "id: ledger\nbackend_port: 8201\nfrontend_port: 3201\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate product id")
}

func TestLoadCatalogRejectsDuplicatePort(t *testing.T) {
	dir := t.TempDir()
	writeProduct(t, dir, "a.yaml", "id: ledger\nbackend_port: 8101\nfrontend_port: 3101\n")
	writeProduct(t, dir, "b.yaml", "id: pulse\nbackend_port: 8101\nfrontend_port: 3201\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used")
}

func TestLoadCatalogRejectsInvalidSpecs(t *testing.T) {
	cases := map[string]string{
		"missing id":      "backend_port: 8101\nfrontend_port: 3101\n",
		"bad port":        "id: x\nbackend_port: 99999\nfrontend_port: 3101\n",
		"equal ports":     "id: x\nbackend_port: 8101\nfrontend_port: 8101\n",
		"unknown tier":    "id: x\nbackend_port: 8101\nfrontend_port: 3101\nmin_tier: platinum\n",
		"id with slashes": "id: a/b\nbackend_port: 8101\nfrontend_port: 3101\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeProduct(t, dir, "p.yaml", body)
			_, err := Load(dir)
			require.Error(t, err)
		})
	}
}

func TestTierOrdering(t *testing.T) {
	assert.True(t, models.TierEnterprise.AtLeast(models.TierProfessional))
	assert.True(t, models.TierProfessional.AtLeast(models.TierProfessional))
	assert.False(t, models.TierStarter.AtLeast(models.TierProfessional))
	assert.True(t, models.TierUnlimited.EntitlesAll())
	assert.True(t, models.TierEnterprise.EntitlesAll())
	assert.False(t, models.TierProfessional.EntitlesAll())
	assert.False(t, models.Tier("platinum").Known())
}
