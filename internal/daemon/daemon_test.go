package daemon

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhand/deckhand/internal/config"
	"github.com/deckhand/deckhand/internal/db"
)

func testServiceConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ConfigPath = filepath.Join(base, "config.yaml")
	cfg.CatalogDir = filepath.Join(base, "products")
	cfg.DataDir = filepath.Join(base, "data")
	cfg.RunDir = filepath.Join(base, "run")
	cfg.SocketPath = filepath.Join(cfg.RunDir, "deckhandd.sock")
	cfg.DBPath = filepath.Join(cfg.DataDir, "deckhand.db")
	cfg.LicenseKeyPath = filepath.Join(cfg.DataDir, "keys", "license.key")
	cfg.DockerSocket = filepath.Join(base, "docker.sock")
	cfg.LicenseURL = "https://license.invalid"
	cfg.MonitorURL = ""
	cfg.UpdateURL = ""
	cfg.MetricsListen = ""
	return cfg
}

func TestListenUnixRemovesStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "test.sock")

	first, err := listenUnix(socketPath)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Close leaves the socket file behind; a second bind must clear it.
	second, err := listenUnix(socketPath)
	require.NoError(t, err)
	defer second.Close()

	info, err := os.Stat(socketPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(socketPerms), info.Mode().Perm())
}

func TestServiceLifecycle(t *testing.T) {
	cfg := testServiceConfig(t)
	cat := newTestCatalog(t)
	store, err := db.Open(cfg.DBPath)
	require.NoError(t, err)

	service, err := NewService(cfg, cat, store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Serve(ctx) }()

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, "unix", cfg.SocketPath)
			},
		},
		Timeout: 5 * time.Second,
	}

	var resp *http.Response
	require.Eventually(t, func() bool {
		var err error
		resp, err = client.Get("http://unix/healthz")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	resp, err = client.Get("http://unix/v1/host")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Startup validation seeds the trial before any client call.
	lic, err := service.validator.GetLicense(context.Background())
	require.NoError(t, err)
	require.NotNil(t, lic)
	assert.True(t, lic.IsTrial)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("service did not shut down")
	}

	_, err = os.Stat(cfg.SocketPath)
	assert.True(t, os.IsNotExist(err), "socket file should be removed on shutdown")
}
