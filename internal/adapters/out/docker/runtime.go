// Package docker implements the container runtime adapter using the Docker
// Engine API.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"deckhand/internal/boundaries/out"
	"deckhand/internal/domain"
	"deckhand/pkg/logger"
)

// Container labels the adapter reads. The compose project label is the default
// stack membership signal; the deckhand labels override it.
const (
	labelComposeProject = "com.docker.compose.project"
	labelStack          = "deckhand.stack"
	labelCategory       = "deckhand.category"
)

// maxConcurrentStats bounds parallel stats reads during a container listing.
const maxConcurrentStats = 8

// Runtime implements out.ContainerRuntime against the Docker daemon.
type Runtime struct {
	client *client.Client

	mu    sync.Mutex
	rates map[string]netReading // last network counters per container name
}

type netReading struct {
	rx, tx uint64
	at     time.Time
}

// NewRuntime creates a Docker runtime from the environment (DOCKER_HOST etc.).
func NewRuntime() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return NewRuntimeWithClient(cli), nil
}

// NewRuntimeWithClient creates a runtime with a custom client (for testing).
func NewRuntimeWithClient(cli *client.Client) *Runtime {
	return &Runtime{
		client: cli,
		rates:  make(map[string]netReading),
	}
}

// ListContainers returns every container with stack/category membership from
// labels. Stats for running containers are read best-effort; a failed stats
// read leaves Stats nil rather than failing the listing.
func (r *Runtime) ListContainers(ctx context.Context) ([]domain.Container, error) {
	summaries, err := r.client.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, r.wrap(err, "list containers")
	}

	result := make([]domain.Container, 0, len(summaries))
	for _, s := range summaries {
		name := ""
		if len(s.Names) > 0 {
			name = strings.TrimPrefix(s.Names[0], "/")
		}
		result = append(result, domain.Container{
			ID:       s.ID,
			Name:     name,
			Image:    s.Image,
			Stack:    stackFromLabels(s.Labels),
			Category: s.Labels[labelCategory],
			Status:   domain.ParseContainerStatus(s.State),
		})
	}

	r.attachStats(ctx, result)
	return result, nil
}

// attachStats fills Stats for running containers with bounded concurrency.
func (r *Runtime) attachStats(ctx context.Context, containers []domain.Container) {
	sem := make(chan struct{}, maxConcurrentStats)
	var wg sync.WaitGroup

	for i := range containers {
		if !containers[i].Running() {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c *domain.Container) {
			defer wg.Done()
			defer func() { <-sem }()

			stats, err := r.GetStats(ctx, c.Name)
			if err != nil {
				logger.Debug("stats read failed during listing", "container", c.Name, "error", err)
				return
			}
			c.Stats = stats
		}(&containers[i])
	}
	wg.Wait()
}

// Action forwards a lifecycle action. Starting an already running container is
// a daemon-side no-op and reported as success.
func (r *Runtime) Action(ctx context.Context, name string, action out.ContainerAction) error {
	var err error
	switch action {
	case out.ActionStart:
		err = r.client.ContainerStart(ctx, name, container.StartOptions{})
	case out.ActionStop:
		err = r.client.ContainerStop(ctx, name, container.StopOptions{})
	case out.ActionRestart:
		err = r.client.ContainerRestart(ctx, name, container.StopOptions{})
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, action)
	}
	return r.wrap(err, string(action)+" container")
}

// Logs returns up to lines of raw demultiplexed log text.
func (r *Runtime) Logs(ctx context.Context, name string, lines int, since time.Time) (string, error) {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
		Tail:       "all",
	}
	if lines > 0 {
		opts.Tail = strconv.Itoa(lines)
	}
	if !since.IsZero() {
		opts.Since = since.UTC().Format(time.RFC3339Nano)
	}

	rc, err := r.client.ContainerLogs(ctx, name, opts)
	if err != nil {
		return "", r.wrap(err, "get container logs")
	}
	defer rc.Close()

	// stdout and stderr frames interleave into one buffer in arrival order.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return "", r.wrap(err, "read container logs")
	}
	return buf.String(), nil
}

// Close releases the underlying client connection.
func (r *Runtime) Close() error {
	return r.client.Close()
}

// Ping verifies the daemon is reachable.
func (r *Runtime) Ping(ctx context.Context) error {
	if _, err := r.client.Ping(ctx); err != nil {
		return r.wrap(err, "ping runtime")
	}
	return nil
}

func stackFromLabels(labels map[string]string) string {
	if v := labels[labelStack]; v != "" {
		return v
	}
	return labels[labelComposeProject]
}

// wrap translates Docker client failures into the domain error taxonomy.
func (r *Runtime) wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, domain.ErrTimeout)
	case cerrdefs.IsNotFound(err):
		return fmt.Errorf("%s: %w", op, domain.ErrContainerNotFound)
	case client.IsErrConnectionFailed(err):
		return fmt.Errorf("%s: %w", op, domain.ErrRuntimeUnavailable)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
