package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deckhand/deckhand/internal/models"
)

// ErrAuthorityUnreachable wraps transport-level failures talking to the
// license authority. Callers use it to tell "server said no" apart from
// "could not reach the server".
var ErrAuthorityUnreachable = errors.New("license authority unreachable")

// Authority validates license keys against the remote licensing service.
// AuthorityClient is the production implementation; tests substitute fakes.
type Authority interface {
	Validate(ctx context.Context, licenseKey, machineID string) (AuthorityResult, error)
}

// AuthorityResult is the authority's verdict on a key/machine pair.
// License is populated only when Valid is true.
type AuthorityResult struct {
	Valid   bool
	Reason  string
	License models.License
}

// AuthorityClient talks to the license authority over HTTPS.
type AuthorityClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

var _ Authority = (*AuthorityClient)(nil)

// NewAuthorityClient creates a client for the authority at baseURL.
func NewAuthorityClient(baseURL string) *AuthorityClient {
	return &AuthorityClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type validateRequest struct {
	LicenseKey string `json:"licenseKey"`
	MachineID  string `json:"machineId"`
}

type validateResponse struct {
	Valid   bool            `json:"valid"`
	Reason  string          `json:"reason,omitempty"`
	License *models.License `json:"license,omitempty"`
}

// Validate posts the key and machine identity to the authority.
// Transport failures and non-2xx statuses return ErrAuthorityUnreachable;
// a reachable authority that rejects the key returns Valid=false with a
// Reason and no error.
func (c *AuthorityClient) Validate(ctx context.Context, licenseKey, machineID string) (AuthorityResult, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return AuthorityResult{}, fmt.Errorf("%w: no authority url configured", ErrAuthorityUnreachable)
	}
	payload, err := json.Marshal(validateRequest{LicenseKey: licenseKey, MachineID: machineID})
	if err != nil {
		return AuthorityResult{}, fmt.Errorf("encode validate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/licenses/validate", bytes.NewReader(payload))
	if err != nil {
		return AuthorityResult{}, fmt.Errorf("create validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client().Do(req)
	if err != nil {
		return AuthorityResult{}, fmt.Errorf("%w: %v", ErrAuthorityUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return AuthorityResult{}, fmt.Errorf("%w: read response: %v", ErrAuthorityUnreachable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return AuthorityResult{}, fmt.Errorf("%w: status %d", ErrAuthorityUnreachable, resp.StatusCode)
	}

	var parsed validateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return AuthorityResult{}, fmt.Errorf("%w: parse response: %v", ErrAuthorityUnreachable, err)
	}
	result := AuthorityResult{Valid: parsed.Valid, Reason: parsed.Reason}
	if parsed.Valid {
		if parsed.License == nil {
			return AuthorityResult{}, fmt.Errorf("%w: valid response missing license payload", ErrAuthorityUnreachable)
		}
		result.License = *parsed.License
	}
	return result, nil
}

func (c *AuthorityClient) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
