package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deckhand/deckhand/internal/catalog"
	"github.com/deckhand/deckhand/internal/config"
	"github.com/deckhand/deckhand/internal/db"
	"github.com/deckhand/deckhand/internal/docker"
	"github.com/deckhand/deckhand/internal/fleet"
	"github.com/deckhand/deckhand/internal/license"
	"github.com/deckhand/deckhand/internal/update"
)

const (
	shutdownTimeout = 5 * time.Second
	socketPerms     = 0o660
	runDirPerms     = 0o750
)

// Service wires the control socket listener and the optional local
// metrics listener.
type Service struct {
	cfg             config.Config
	store           *db.Store
	catalog         *catalog.Catalog
	unixListener    net.Listener
	metricsListener net.Listener
	unixServer      *http.Server
	metricsServer   *http.Server
	products        *ProductManager
	validator       *license.Validator
}

// Run loads the catalog, binds the control socket, and serves until ctx
// is canceled.
func Run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if warning, err := config.CheckConfigPermissions(cfg.ConfigPath); err == nil && warning != "" {
		log.Printf("deckhandd: %s", warning)
	}
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		return err
	}
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	service, err := NewService(cfg, cat, store)
	if err != nil {
		_ = store.Close()
		return err
	}
	log.Printf("deckhandd: loaded %d products from %s", cat.Len(), cfg.CatalogDir)
	return service.Serve(ctx)
}

// NewService constructs a service with bound listeners.
func NewService(cfg config.Config, cat *catalog.Catalog, store *db.Store) (*Service, error) {
	if err := ensureDir(cfg.RunDir, runDirPerms); err != nil {
		return nil, err
	}
	unixListener, err := listenUnix(cfg.SocketPath)
	if err != nil {
		return nil, err
	}
	var metricsListener net.Listener
	if strings.TrimSpace(cfg.MetricsListen) != "" {
		metricsListener, err = net.Listen("tcp", cfg.MetricsListen)
		if err != nil {
			_ = unixListener.Close()
			return nil, fmt.Errorf("listen metrics %s: %w", cfg.MetricsListen, err)
		}
	}

	metrics := NewMetrics()
	backend := docker.NewAPIBackend(cfg.DockerSocket)
	products := NewProductManager(cat, backend, cfg.ImageRegistry, log.Default()).
		WithStore(store).
		WithMetrics(metrics)

	authority := license.NewAuthorityClient(cfg.LicenseURL)
	sealer := &license.Sealer{KeyPath: cfg.LicenseKeyPath}
	validator := license.NewValidator(store, authority, sealer, log.Default()).
		WithTrialProducts(cat.IDs())

	api := NewControlAPI(cat, products, validator, log.Default()).
		WithStore(store).
		WithMetrics(metrics)
	if strings.TrimSpace(cfg.MonitorURL) != "" {
		client := fleet.NewClient(cfg.MonitorURL, cfg.MonitorToken)
		api = api.WithMonitor(fleet.NewMonitor(client, log.Default()))
	} else {
		log.Printf("deckhandd: monitor_url missing; fleet routes disabled")
	}
	if strings.TrimSpace(cfg.UpdateURL) != "" {
		checker := update.NewChecker(cfg.UpdateURL, log.Default()).
			WithStore(store).
			WithVersionFile(cfg.VersionFile)
		api = api.WithUpdates(checker)
	}

	localMux := http.NewServeMux()
	localMux.HandleFunc("/healthz", healthHandler)
	api.Register(localMux)

	unixServer := &http.Server{
		Handler:           localMux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	var metricsServer *http.Server
	if metricsListener != nil {
		metricsMux := http.NewServeMux()
		metricsMux.HandleFunc("/healthz", healthHandler)
		metricsMux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       2 * time.Minute,
		}
	}

	return &Service{
		cfg:             cfg,
		store:           store,
		catalog:         cat,
		unixListener:    unixListener,
		metricsListener: metricsListener,
		unixServer:      unixServer,
		metricsServer:   metricsServer,
		products:        products,
		validator:       validator,
	}, nil
}

// Serve blocks until shutdown or a listener error occurs.
func (s *Service) Serve(ctx context.Context) error {
	log.Printf("deckhandd: listening on unix=%s", s.cfg.SocketPath)
	if s.metricsListener != nil {
		log.Printf("deckhandd: listening on metrics=%s", s.cfg.MetricsListen)
	}

	// Run the license state machine once at startup so an unlicensed host
	// gets its trial before the first client connects.
	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if valid, err := s.validator.Validate(startupCtx); err != nil {
		log.Printf("deckhandd: startup license validation: %v", err)
	} else if !valid {
		log.Printf("deckhandd: license is not valid; product starts will be refused")
	}
	cancel()

	listeners := 1
	errCh := make(chan error, 2)
	go func() { errCh <- s.unixServer.Serve(s.unixListener) }()
	if s.metricsServer != nil {
		listeners = 2
		go func() { errCh <- s.metricsServer.Serve(s.metricsListener) }()
	}

	remaining := listeners
	var serveErr error

	select {
	case <-ctx.Done():
		// graceful shutdown
	case err := <-errCh:
		remaining = listeners - 1
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	s.shutdown()
	for i := 0; i < remaining; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) && serveErr == nil {
			serveErr = err
		}
	}

	_ = os.Remove(s.cfg.SocketPath)
	return serveErr
}

func (s *Service) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = s.unixServer.Shutdown(ctx)
	if s.metricsServer != nil {
		_ = s.metricsServer.Shutdown(ctx)
	}
	if s.store != nil {
		_ = s.store.Close()
	}
}

func ensureDir(path string, perms os.FileMode) error {
	if path == "" {
		return errors.New("run_dir is required")
	}
	if err := os.MkdirAll(path, perms); err != nil {
		return fmt.Errorf("create dir %s: %w", path, err)
	}
	return nil
}

func listenUnix(socketPath string) (net.Listener, error) {
	if socketPath == "" {
		return nil, errors.New("socket_path is required")
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), runDirPerms); err != nil {
		return nil, fmt.Errorf("create socket dir %s: %w", filepath.Dir(socketPath), err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket %s: %w", socketPath, err)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, socketPerms); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket %s: %w", socketPath, err)
	}
	return listener, nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
