// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters.
package out

import (
	"context"
	"time"

	"deckhand/internal/domain"
)

// ContainerAction is a lifecycle action forwarded to the runtime.
type ContainerAction string

const (
	ActionStart   ContainerAction = "start"
	ActionStop    ContainerAction = "stop"
	ActionRestart ContainerAction = "restart"
)

// ExecOutput holds the result of executing a command in a container.
type ExecOutput struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ContainerRuntime is the narrow capability contract to the container runtime.
// Implementations must translate runtime-native failures into the domain error
// taxonomy: ErrContainerNotFound, ErrRuntimeUnavailable, ErrTimeout.
type ContainerRuntime interface {
	// ListContainers returns every container (running or not) with stack and
	// category membership derived from labels. Stats are populated for
	// running containers on a best-effort basis.
	ListContainers(ctx context.Context) ([]domain.Container, error)

	// GetStats returns a usage reading for one running container.
	GetStats(ctx context.Context, name string) (*domain.ContainerStats, error)

	// Action starts, stops or restarts a container. Starting an already
	// running container is not an error.
	Action(ctx context.Context, name string, action ContainerAction) error

	// Exec runs a command inside a running container and returns its
	// captured output and exit code.
	Exec(ctx context.Context, name string, cmd []string) (*ExecOutput, error)

	// Logs returns up to lines of raw log text, optionally bounded by since.
	Logs(ctx context.Context, name string, lines int, since time.Time) (string, error)

	// SubscribeEvents opens the upstream lifecycle event feed. The channels
	// close when ctx is cancelled or the stream fails; the error channel
	// reports the stream failure.
	SubscribeEvents(ctx context.Context) (<-chan domain.Event, <-chan error)

	// Ping verifies the runtime is reachable.
	Ping(ctx context.Context) error
}
