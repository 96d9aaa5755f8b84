package daemon

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deckhand/deckhand/internal/catalog"
	"github.com/deckhand/deckhand/internal/db"
	"github.com/deckhand/deckhand/internal/license"
	"github.com/deckhand/deckhand/internal/models"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newTestCatalog loads a two-product catalog: crm at trial tier, erp at
// professional.
func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crm.yaml"), []byte(`
id: crm
name: CRM
category: sales
backend_port: 8101
frontend_port: 8201
min_tier: trial
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "erp.yaml"), []byte(`
id: erp
name: ERP
category: operations
backend_port: 8102
frontend_port: 8202
min_tier: professional
`), 0o644))
	cat, err := catalog.Load(dir)
	require.NoError(t, err)
	return cat
}

type stubAuthority struct {
	result license.AuthorityResult
	err    error
}

func (s stubAuthority) Validate(ctx context.Context, licenseKey, machineID string) (license.AuthorityResult, error) {
	return s.result, s.err
}

// newTestValidator builds a validator over a fresh store. The stub
// authority accepts every key with a professional license covering crm.
func newTestValidator(t *testing.T, store *db.Store, cat *catalog.Catalog) *license.Validator {
	t.Helper()
	authority := stubAuthority{result: license.AuthorityResult{
		Valid: true,
		License: models.License{
			Tier:     models.TierProfessional,
			Products: []string{"crm"},
		},
	}}
	sealer := &license.Sealer{KeyPath: filepath.Join(t.TempDir(), "license.key")}
	return license.NewValidator(store, authority, sealer, testLogger()).
		WithTrialProducts(cat.IDs()).
		WithMachineIDPath(filepath.Join(t.TempDir(), "machine-id"))
}
