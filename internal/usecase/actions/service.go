// Package actions forwards container lifecycle actions and log reads to the
// runtime adapter.
package actions

import (
	"context"
	"fmt"
	"time"

	"deckhand/internal/boundaries/out"
	"deckhand/internal/domain"
	"deckhand/pkg/logger"
)

const (
	defaultRuntimeTimeout = 30 * time.Second

	// maxLogLines caps a single log request.
	maxLogLines = 10000
)

// Refresher lets the service request an immediate inventory refresh after a
// state-changing action.
type Refresher interface {
	TriggerRefresh()
}

// Config holds the action service settings.
type Config struct {
	RuntimeTimeout time.Duration
}

// Service implements in.ActionService.
type Service struct {
	runtime   out.ContainerRuntime
	refresher Refresher
	cfg       Config
}

// NewService creates an action service. refresher may be nil.
func NewService(runtime out.ContainerRuntime, refresher Refresher, cfg Config) *Service {
	if cfg.RuntimeTimeout <= 0 {
		cfg.RuntimeTimeout = defaultRuntimeTimeout
	}
	return &Service{runtime: runtime, refresher: refresher, cfg: cfg}
}

// Action starts, stops or restarts a container and returns a confirmation
// message. Starting an already running container succeeds with the same
// message; the runtime treats it as a no-op.
func (s *Service) Action(ctx context.Context, container, action string) (string, error) {
	var (
		runtimeAction out.ContainerAction
		message       string
	)
	switch action {
	case "start":
		runtimeAction, message = out.ActionStart, fmt.Sprintf("Started %s", container)
	case "stop":
		runtimeAction, message = out.ActionStop, fmt.Sprintf("Stopped %s", container)
	case "restart":
		runtimeAction, message = out.ActionRestart, fmt.Sprintf("Restarted %s", container)
	default:
		return "", fmt.Errorf("%w: unknown action %q", domain.ErrInvalidInput, action)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RuntimeTimeout)
	defer cancel()

	if err := s.runtime.Action(ctx, container, runtimeAction); err != nil {
		return "", err
	}

	logger.Info("container action applied", "container", container, "action", action)
	if s.refresher != nil {
		s.refresher.TriggerRefresh()
	}
	return message, nil
}

// Logs passes a raw log read through to the runtime. lines and since are
// forwarded unmodified apart from the hard cap.
func (s *Service) Logs(ctx context.Context, container string, lines int, since time.Time) (string, error) {
	if lines < 0 || lines > maxLogLines {
		return "", fmt.Errorf("%w: lines must be between 0 and %d", domain.ErrInvalidInput, maxLogLines)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RuntimeTimeout)
	defer cancel()

	return s.runtime.Logs(ctx, container, lines, since)
}
