// This file provides a deterministic in-memory container runtime for tests.
package docker

import (
	"context"
	"fmt"
	"sync"
)

// FakeBackend implements Backend with in-memory state for tests.
// It is deterministic and safe for concurrent use.
type FakeBackend struct {
	mu         sync.Mutex
	containers map[string]*fakeContainer
	images     map[string]struct{}
	nextID     int

	// Failure injection knobs.
	PingErr    error
	PullErr    error
	CreateErr  error
	StartErr   error
	StopErr    error
	InspectErr error
	InfoErr    error

	// Call counters for asserting idempotency.
	PullCalls   int
	CreateCalls int
	StartCalls  int
	StopCalls   int
	PruneCalls  int
}

type fakeContainer struct {
	id      string
	name    string
	config  ContainerConfig
	running bool
}

// NewFakeBackend returns a FakeBackend with empty state.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		containers: make(map[string]*fakeContainer),
		images:     make(map[string]struct{}),
		nextID:     1,
	}
}

// SeedContainer installs a container directly, bypassing pull/create.
func (b *FakeBackend) SeedContainer(name string, cfg ContainerConfig, running bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.containers[name] = &fakeContainer{
		id:      fmt.Sprintf("fake-%d", b.nextID),
		name:    name,
		config:  cfg,
		running: running,
	}
}

// ContainerCount returns the number of containers known to the fake.
func (b *FakeBackend) ContainerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.containers)
}

func (b *FakeBackend) Ping(ctx context.Context) error {
	return b.PingErr
}

func (b *FakeBackend) PullImage(ctx context.Context, ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PullCalls++
	if b.PullErr != nil {
		return b.PullErr
	}
	b.images[ref] = struct{}{}
	return nil
}

func (b *FakeBackend) CreateContainer(ctx context.Context, name string, cfg ContainerConfig) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CreateCalls++
	if b.CreateErr != nil {
		return "", b.CreateErr
	}
	if _, exists := b.containers[name]; exists {
		return "", fmt.Errorf("%w: %s", ErrConflict, name)
	}
	b.nextID++
	id := fmt.Sprintf("fake-%d", b.nextID)
	b.containers[name] = &fakeContainer{id: id, name: name, config: cfg}
	return id, nil
}

func (b *FakeBackend) StartContainer(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.StartCalls++
	if b.StartErr != nil {
		return b.StartErr
	}
	container, ok := b.containers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	container.running = true
	return nil
}

func (b *FakeBackend) StopContainer(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.StopCalls++
	if b.StopErr != nil {
		return b.StopErr
	}
	container, ok := b.containers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	container.running = false
	return nil
}

func (b *FakeBackend) InspectContainer(ctx context.Context, name string) (ContainerState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.InspectErr != nil {
		return ContainerState{}, b.InspectErr
	}
	container, ok := b.containers[name]
	if !ok {
		return ContainerState{}, fmt.Errorf("%w: %s", ErrContainerNotFound, name)
	}
	status := "exited"
	if container.running {
		status = "running"
	}
	return ContainerState{
		ID:      container.id,
		Name:    container.name,
		Image:   container.config.Image,
		Running: container.running,
		Status:  status,
	}, nil
}

func (b *FakeBackend) Info(ctx context.Context) (HostInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.InfoErr != nil {
		return HostInfo{}, b.InfoErr
	}
	running := 0
	for _, container := range b.containers {
		if container.running {
			running++
		}
	}
	return HostInfo{
		Containers:        len(b.containers),
		ContainersRunning: running,
		ContainersStopped: len(b.containers) - running,
		Images:            len(b.images),
		NCPU:              4,
		MemTotal:          8 << 30,
		ServerVersion:     "fake",
		OperatingSystem:   "fakeos",
	}, nil
}

func (b *FakeBackend) PruneContainers(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PruneCalls++
	for name, container := range b.containers {
		if !container.running {
			delete(b.containers, name)
		}
	}
	return nil
}

func (b *FakeBackend) PruneImages(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PruneCalls++
	return nil
}

func (b *FakeBackend) PruneVolumes(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PruneCalls++
	return nil
}

func (b *FakeBackend) PruneNetworks(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.PruneCalls++
	return nil
}
