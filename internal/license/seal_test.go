package license

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand/deckhand/internal/models"
)

func TestSealerRoundTrip(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "seal.key")
	sealer := NewSealer(keyPath)

	lic := models.License{
		Key:         "DH-PRO-1234",
		Tier:        models.TierProfessional,
		Products:    []string{"ledger"},
		ExpiresAt:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxUsers:    25,
		Features:    map[string]string{"sso": "enabled"},
	}

	sealed, err := sealer.Seal(lic)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "DH-PRO-1234")

	// First Seal generated the key file with owner-only permissions.
	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, lic.Key, got.Key)
	assert.Equal(t, lic.Tier, got.Tier)
	assert.Equal(t, lic.Products, got.Products)
	assert.True(t, got.ExpiresAt.Equal(lic.ExpiresAt))
	assert.Equal(t, lic.Features, got.Features)
}

func TestSealerKeyIsStable(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "seal.key")

	sealed, err := NewSealer(keyPath).Seal(models.License{Key: "k", Tier: models.TierStarter})
	require.NoError(t, err)

	// A fresh Sealer over the same key file can open earlier payloads.
	got, err := NewSealer(keyPath).Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "k", got.Key)
}

func TestSealerOpenWithoutKey(t *testing.T) {
	sealer := NewSealer(filepath.Join(t.TempDir(), "missing.key"))
	_, err := sealer.Open("AAAA")
	require.Error(t, err)
}

func TestSealerRejectsGarbage(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "seal.key")
	sealer := NewSealer(keyPath)
	_, err := sealer.Seal(models.License{Key: "k"})
	require.NoError(t, err)

	_, err = sealer.Open("not base64!!")
	require.Error(t, err)

	_, err = sealer.Open("AAAAAAAA")
	require.Error(t, err)
}
