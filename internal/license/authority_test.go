package license

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

func TestAuthorityClientValidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/licenses/validate", r.URL.Path)

		var req validateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "DH-PRO-1234", req.LicenseKey)
		assert.Equal(t, "machine-a", req.MachineID)

		_ = json.NewEncoder(w).Encode(validateResponse{
			Valid: true,
			License: &models.License{
				Tier:     models.TierProfessional,
				Products: []string{"ledger"},
			},
		})
	}))
	defer server.Close()

	client := NewAuthorityClient(server.URL)
	result, err := client.Validate(context.Background(), "DH-PRO-1234", "machine-a")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, models.TierProfessional, result.License.Tier)
}

func TestAuthorityClientRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(validateResponse{Valid: false, Reason: "unknown key"})
	}))
	defer server.Close()

	result, err := NewAuthorityClient(server.URL).Validate(context.Background(), "bad", "machine-a")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "unknown key", result.Reason)
}

func TestAuthorityClientUnreachable(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := NewAuthorityClient(server.URL).Validate(context.Background(), "k", "m")
		require.ErrorIs(t, err, ErrAuthorityUnreachable)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := NewAuthorityClient(server.URL).Validate(context.Background(), "k", "m")
		require.ErrorIs(t, err, ErrAuthorityUnreachable)
	})

	t.Run("valid response without license payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(validateResponse{Valid: true})
		}))
		defer server.Close()

		_, err := NewAuthorityClient(server.URL).Validate(context.Background(), "k", "m")
		require.ErrorIs(t, err, ErrAuthorityUnreachable)
	})

	t.Run("no base url", func(t *testing.T) {
		_, err := (&AuthorityClient{}).Validate(context.Background(), "k", "m")
		require.ErrorIs(t, err, ErrAuthorityUnreachable)
	})
}
