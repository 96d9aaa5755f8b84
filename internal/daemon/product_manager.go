package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/deckhand/deckhand/internal/catalog"
	"github.com/deckhand/deckhand/internal/db"
	"github.com/deckhand/deckhand/internal/docker"
	"github.com/deckhand/deckhand/internal/models"
)

// ErrUnknownProduct is returned for product ids absent from the catalog.
var ErrUnknownProduct = errors.New("unknown product")

// ProductManager orchestrates the backend/frontend container pair of each
// catalog product.
//
// Operations on the same product id are serialized through a per-id mutex;
// distinct ids proceed independently. Start is idempotent: repeated calls
// on a running product are no-ops and never create duplicate containers.
type ProductManager struct {
	catalog  *catalog.Catalog
	backend  docker.Backend
	store    *db.Store
	registry string
	logger   *log.Logger
	metrics  *Metrics
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProductManager builds a product manager with defaults.
func NewProductManager(cat *catalog.Catalog, backend docker.Backend, registry string, logger *log.Logger) *ProductManager {
	if logger == nil {
		logger = log.Default()
	}
	return &ProductManager{
		catalog:  cat,
		backend:  backend,
		registry: registry,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// WithStore wires event-log persistence.
func (m *ProductManager) WithStore(store *db.Store) *ProductManager {
	if m == nil {
		return m
	}
	m.store = store
	return m
}

// WithMetrics wires optional Prometheus metrics.
func (m *ProductManager) WithMetrics(metrics *Metrics) *ProductManager {
	if m == nil {
		return m
	}
	m.metrics = metrics
	return m
}

// RuntimeAvailable reports whether the container runtime answers a liveness
// probe. Never returns an error; any failure is false.
func (m *ProductManager) RuntimeAvailable(ctx context.Context) bool {
	if m == nil || m.backend == nil {
		return false
	}
	return m.backend.Ping(ctx) == nil
}

// containerRole pairs a deterministic container name with its image and
// port binding.
type containerRole struct {
	name string
	ref  string
	port int
}

func (m *ProductManager) roles(product models.Product) []containerRole {
	return []containerRole{
		{name: product.BackendContainer(), ref: m.imageRef(product.ID, "backend"), port: product.BackendPort},
		{name: product.FrontendContainer(), ref: m.imageRef(product.ID, "frontend"), port: product.FrontendPort},
	}
}

func (m *ProductManager) imageRef(productID, role string) string {
	return fmt.Sprintf("%s/%s-%s:latest", m.registry, productID, role)
}

// StartProduct brings both containers of a product up, creating them on
// first start. The returned error carries a human-readable cause; no
// automatic retry happens here.
func (m *ProductManager) StartProduct(ctx context.Context, productID string) error {
	if m == nil || m.backend == nil {
		return errors.New("product manager not configured")
	}
	product, ok := m.catalog.Lookup(productID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	lock := m.productLock(productID)
	lock.Lock()
	defer lock.Unlock()

	started := m.now()
	for _, role := range m.roles(product) {
		if err := m.ensureRunning(ctx, role); err != nil {
			m.metrics.IncProductStart("failure")
			m.recordEvent(ctx, "product.start_failed", productID, err.Error())
			return err
		}
	}
	duration := m.now().Sub(started)
	m.metrics.IncProductStart("success")
	m.metrics.ObserveProductStart(duration)
	m.recordEvent(ctx, "product.start", productID, fmt.Sprintf("started in %s", duration.Round(time.Millisecond)))
	return nil
}

// ensureRunning converges one container to the running state.
func (m *ProductManager) ensureRunning(ctx context.Context, role containerRole) error {
	state, err := m.backend.InspectContainer(ctx, role.name)
	switch {
	case err == nil:
		if state.Running {
			return nil
		}
		if err := m.backend.StartContainer(ctx, role.name); err != nil {
			return fmt.Errorf("start container %s: %w", role.name, err)
		}
		return nil
	case errors.Is(err, docker.ErrContainerNotFound):
		// First start for this role: pull, create, start.
		if err := m.backend.PullImage(ctx, role.ref); err != nil {
			return fmt.Errorf("pull image %s: %w", role.ref, err)
		}
		cfg := docker.ContainerConfig{
			Image:         role.ref,
			ContainerPort: role.port,
			HostPort:      role.port,
			RestartPolicy: "unless-stopped",
		}
		if _, err := m.backend.CreateContainer(ctx, role.name, cfg); err != nil {
			return fmt.Errorf("create container %s: %w", role.name, err)
		}
		if err := m.backend.StartContainer(ctx, role.name); err != nil {
			return fmt.Errorf("start container %s: %w", role.name, err)
		}
		return nil
	default:
		return fmt.Errorf("inspect container %s: %w", role.name, err)
	}
}

// StopProduct stops both containers. Missing or already-stopped containers
// are success; stop is as idempotent as start.
func (m *ProductManager) StopProduct(ctx context.Context, productID string) error {
	if m == nil || m.backend == nil {
		return errors.New("product manager not configured")
	}
	product, ok := m.catalog.Lookup(productID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	lock := m.productLock(productID)
	lock.Lock()
	defer lock.Unlock()

	for _, role := range m.roles(product) {
		if err := m.backend.StopContainer(ctx, role.name); err != nil {
			if errors.Is(err, docker.ErrContainerNotFound) {
				continue
			}
			m.metrics.IncProductStop("failure")
			return fmt.Errorf("stop container %s: %w", role.name, err)
		}
	}
	m.metrics.IncProductStop("success")
	m.recordEvent(ctx, "product.stop", productID, "stopped")
	return nil
}

// Status classifies a product by inspecting its backend container, the
// authoritative half of the pair. A missing container is stopped; a failed
// runtime call is error, never conflated with stopped.
func (m *ProductManager) Status(ctx context.Context, productID string) (models.ProductStatus, error) {
	if m == nil || m.backend == nil {
		return models.ProductError, errors.New("product manager not configured")
	}
	product, ok := m.catalog.Lookup(productID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	state, err := m.backend.InspectContainer(ctx, product.BackendContainer())
	switch {
	case err == nil:
		if state.Running {
			return models.ProductRunning, nil
		}
		return models.ProductStopped, nil
	case errors.Is(err, docker.ErrContainerNotFound):
		return models.ProductStopped, nil
	default:
		m.logger.Printf("product %s: status inspect failed: %v", productID, err)
		return models.ProductError, nil
	}
}

// Statuses returns the status of every catalog product.
func (m *ProductManager) Statuses(ctx context.Context) (map[string]models.ProductStatus, error) {
	if m == nil || m.catalog == nil {
		return nil, errors.New("product manager not configured")
	}
	out := make(map[string]models.ProductStatus, m.catalog.Len())
	for _, product := range m.catalog.Products() {
		status, err := m.Status(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		out[product.ID] = status
	}
	return out, nil
}

// RuntimeSummary returns host-level runtime counters, or nil when any part
// of the collection fails. Callers distinguish "no data" from "zero
// resources" through the nil.
func (m *ProductManager) RuntimeSummary(ctx context.Context) *models.HostSummary {
	if m == nil || m.backend == nil {
		return nil
	}
	info, err := m.backend.Info(ctx)
	if err != nil {
		m.logger.Printf("runtime summary failed: %v", err)
		return nil
	}
	return &models.HostSummary{
		Containers:        info.Containers,
		ContainersRunning: info.ContainersRunning,
		ContainersStopped: info.ContainersStopped,
		Images:            info.Images,
		CPUs:              info.NCPU,
		MemoryBytes:       info.MemTotal,
		ServerVersion:     info.ServerVersion,
		OperatingSystem:   info.OperatingSystem,
	}
}

// Prune is best-effort housekeeping across containers, images, volumes,
// and networks. Failures are logged, never surfaced.
func (m *ProductManager) Prune(ctx context.Context) {
	if m == nil || m.backend == nil {
		return
	}
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"containers", m.backend.PruneContainers},
		{"images", m.backend.PruneImages},
		{"volumes", m.backend.PruneVolumes},
		{"networks", m.backend.PruneNetworks},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			m.logger.Printf("prune %s: %v", step.name, err)
		}
	}
	m.recordEvent(ctx, "runtime.prune", "", "prune completed")
}

func (m *ProductManager) productLock(productID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[productID] = lock
	}
	return lock
}

func (m *ProductManager) recordEvent(ctx context.Context, kind, productID, msg string) {
	if m.store == nil {
		return
	}
	if err := m.store.RecordEvent(ctx, kind, productID, msg, ""); err != nil {
		m.logger.Printf("record event %s: %v", kind, err)
	}
}
