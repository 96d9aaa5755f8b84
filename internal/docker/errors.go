package docker

import "errors"

var (
	// ErrContainerNotFound is returned by inspect/stop operations when the
	// named container does not exist. It is an expected, recoverable
	// condition distinct from a transport error.
	ErrContainerNotFound = errors.New("container not found")

	// ErrImageNotFound is returned by PullImage when the registry has no
	// such image reference.
	ErrImageNotFound = errors.New("image not found")

	// ErrConflict is returned by CreateContainer when a container with the
	// requested name already exists.
	ErrConflict = errors.New("container name already in use")
)

// IsNotFound reports whether err indicates a missing container or image.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContainerNotFound) || errors.Is(err, ErrImageNotFound)
}
