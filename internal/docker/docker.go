// Package docker provides a backend abstraction for the local container
// runtime.
//
// The package defines the Backend interface and common types for container
// lifecycle management, with two implementations: APIBackend (speaking the
// Docker Engine REST API over the daemon socket) and FakeBackend (an
// in-memory implementation for deterministic tests).
//
// Inspect results are tri-state: a found container, ErrContainerNotFound,
// or a transport error. Callers must never conflate "does not exist" with
// "runtime is down".
package docker

import "context"

// ContainerConfig describes a container to create.
type ContainerConfig struct {
	Image         string // Image reference (e.g., "registry.example.com/ledger-backend:latest")
	ContainerPort int    // Port the service listens on inside the container
	HostPort      int    // Host port to publish it on
	RestartPolicy string // Docker restart policy name (e.g., "unless-stopped")
}

// ContainerState is the observed state of a single container.
type ContainerState struct {
	ID      string
	Name    string
	Image   string
	Running bool
	Status  string // Raw engine status string (e.g., "running", "exited")
}

// Backend defines the interface for container runtime operations.
// Both APIBackend and FakeBackend implement this interface, allowing
// runtime selection and easy testing.
type Backend interface {
	// Ping probes runtime liveness.
	Ping(ctx context.Context) error

	// PullImage pulls an image by reference, blocking until the pull
	// completes. Returns ErrImageNotFound when the registry has no such
	// image.
	PullImage(ctx context.Context, ref string) error

	// CreateContainer creates a named container and returns its id.
	// Returns ErrConflict when a container with the name already exists.
	CreateContainer(ctx context.Context, name string, cfg ContainerConfig) (string, error)

	// StartContainer starts a container by name. Starting an already
	// running container is not an error.
	StartContainer(ctx context.Context, name string) error

	// StopContainer stops a container by name. Stopping an already
	// stopped container is not an error. Returns ErrContainerNotFound
	// when no such container exists.
	StopContainer(ctx context.Context, name string) error

	// InspectContainer returns the state of a named container, or
	// ErrContainerNotFound.
	InspectContainer(ctx context.Context, name string) (ContainerState, error)

	// Info returns runtime-level host counters.
	Info(ctx context.Context) (HostInfo, error)

	// PruneContainers removes stopped containers.
	PruneContainers(ctx context.Context) error
	// PruneImages removes dangling images.
	PruneImages(ctx context.Context) error
	// PruneVolumes removes unused anonymous volumes.
	PruneVolumes(ctx context.Context) error
	// PruneNetworks removes unused networks.
	PruneNetworks(ctx context.Context) error
}

// HostInfo mirrors the subset of the engine's /info payload deckhand uses.
type HostInfo struct {
	Containers        int
	ContainersRunning int
	ContainersStopped int
	Images            int
	NCPU              int
	MemTotal          int64
	ServerVersion     string
	OperatingSystem   string
}
