// Package exec implements the command-execution gateway: every operator
// command passes the safety policy before it can reach a container.
package exec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deckhand/internal/boundaries/out"
	"deckhand/internal/domain"
	"deckhand/internal/telemetry"
	"deckhand/pkg/logger"
)

const defaultExecTimeout = 30 * time.Second

// ContainerLookup is the slice of the inventory the gateway needs.
type ContainerLookup interface {
	Container(name string) (domain.Container, bool)
}

// Config holds the gateway settings.
type Config struct {
	Timeout time.Duration
}

// Service implements in.ExecService. Request lifecycle:
// Received -> PolicyChecked -> {Blocked | Dispatched} -> Completed.
// Blocked is terminal; resubmission is an explicit operator action.
type Service struct {
	runtime   out.ContainerRuntime
	inventory ContainerLookup
	policy    Policy
	cfg       Config
}

// NewService creates an exec gateway over the given policy.
func NewService(runtime out.ContainerRuntime, inventory ContainerLookup, policy Policy, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultExecTimeout
	}
	return &Service{
		runtime:   runtime,
		inventory: inventory,
		policy:    policy,
		cfg:       cfg,
	}
}

// Submit gates and dispatches one operator command. The target must exist and
// be running before the policy is even consulted; a policy deny returns a
// blocked result without any runtime side effect.
func (s *Service) Submit(ctx context.Context, container, command string) (domain.ExecResult, error) {
	target, ok := s.inventory.Container(container)
	if !ok {
		telemetry.ExecSubmissions.WithLabelValues("rejected").Inc()
		return domain.ExecResult{}, fmt.Errorf("exec target %q: %w", container, domain.ErrContainerNotFound)
	}
	if !target.Running() {
		telemetry.ExecSubmissions.WithLabelValues("rejected").Inc()
		return domain.ExecResult{}, fmt.Errorf("exec target %q is %s: %w", container, target.Status, domain.ErrContainerNotRunning)
	}

	if err := s.policy.Evaluate(command); err != nil {
		var violation *domain.PolicyViolation
		if !errors.As(err, &violation) {
			violation = &domain.PolicyViolation{Rule: "unknown", Reason: err.Error()}
		}
		telemetry.ExecSubmissions.WithLabelValues("blocked").Inc()
		logger.Warn("exec command blocked by policy",
			"container", container,
			"rule", violation.Rule,
			"reason", violation.Reason)
		return domain.BlockedResult(violation.Reason), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := time.Now()
	output, err := s.runtime.Exec(ctx, container, []string{"sh", "-c", command})
	if err != nil {
		telemetry.ExecSubmissions.WithLabelValues("failed").Inc()
		return domain.ExecResult{}, err
	}

	exitCode := output.ExitCode
	telemetry.ExecSubmissions.WithLabelValues("dispatched").Inc()

	// Audit record: every accepted command and its outcome is reported to the
	// logging collaborator.
	logger.Info("exec command completed",
		"container", container,
		"command", command,
		"exit_code", exitCode,
		"duration", time.Since(started))

	return domain.ExecResult{
		Stdout:   string(output.Stdout),
		Stderr:   string(output.Stderr),
		ExitCode: &exitCode,
	}, nil
}
