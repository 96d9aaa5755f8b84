// Package update checks the release feed for newer deckhand versions.
// It only reports availability; downloading and installing are left to
// the operator.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/deckhand/deckhand/internal/buildinfo"
	"github.com/deckhand/deckhand/internal/db"
)

// Result is the feed's answer for one check.
type Result struct {
	HasUpdate      bool   `json:"has_update"`
	CurrentVersion string `json:"current_version"`
	Version        string `json:"version,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
	Checksum       string `json:"checksum,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// Checker queries the release feed. Each check is recorded in the store
// when one is attached.
type Checker struct {
	FeedURL    string
	HTTPClient *http.Client

	store  *db.Store
	logger *log.Logger

	// versionFile optionally overrides the built-in version, letting a
	// packaged install report the version it was shipped as.
	versionFile string
}

// NewChecker creates a Checker for the feed at feedURL.
func NewChecker(feedURL string, logger *log.Logger) *Checker {
	if logger == nil {
		logger = log.Default()
	}
	return &Checker{
		FeedURL:    strings.TrimSuffix(feedURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// WithStore wires check-history persistence.
func (c *Checker) WithStore(store *db.Store) *Checker {
	if c == nil {
		return c
	}
	c.store = store
	return c
}

// WithVersionFile sets a file whose first line overrides the built-in
// version.
func (c *Checker) WithVersionFile(path string) *Checker {
	if c == nil {
		return c
	}
	c.versionFile = path
	return c
}

// CurrentVersion returns the version this install reports to the feed.
func (c *Checker) CurrentVersion() string {
	if c != nil && c.versionFile != "" {
		if data, err := os.ReadFile(c.versionFile); err == nil {
			if line := firstLine(string(data)); line != "" {
				return line
			}
		}
	}
	return buildinfo.Version
}

// Check asks the feed whether a newer version exists.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	if c == nil {
		return Result{}, errors.New("update checker not configured")
	}
	if strings.TrimSpace(c.FeedURL) == "" {
		return Result{}, errors.New("update feed url is not configured")
	}
	current := c.CurrentVersion()
	params := url.Values{}
	params.Set("current_version", current)
	params.Set("platform", runtime.GOOS)
	params.Set("arch", runtime.GOARCH)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FeedURL+"/check?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("create update request: %w", err)
	}
	resp, err := c.client().Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("update feed unreachable: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read update response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("update feed returned status %d", resp.StatusCode)
	}
	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("parse update response: %w", err)
	}
	result.CurrentVersion = current

	if c.store != nil {
		if err := c.store.RecordUpdateCheck(ctx, current, result.HasUpdate, result.Version); err != nil {
			c.logger.Printf("update: record check: %v", err)
		}
	}
	return result, nil
}

func (c *Checker) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
