// Package inventory maintains the authoritative in-memory snapshot of
// containers and stacks and serves filtered reads over it.
package inventory

import (
	"context"
	"sync/atomic"
	"time"

	"deckhand/internal/boundaries/in"
	"deckhand/internal/boundaries/out"
	"deckhand/internal/domain"
	"deckhand/internal/telemetry"
	"deckhand/pkg/logger"
)

const (
	defaultRefreshInterval = 10 * time.Second
	defaultRuntimeTimeout  = 15 * time.Second
)

// Config holds the inventory loop settings.
type Config struct {
	RefreshInterval time.Duration
	RuntimeTimeout  time.Duration
}

// Service implements in.InventoryService. The snapshot is single-writer
// (only the refresh path replaces it) and published by atomic pointer swap,
// so reads take no locks and never observe a half-updated view.
type Service struct {
	runtime out.ContainerRuntime
	cfg     Config

	snapshot   atomic.Pointer[Snapshot]
	generation atomic.Uint64
	refreshCh  chan struct{}
}

// NewService creates an inventory service with an empty initial snapshot.
func NewService(runtime out.ContainerRuntime, cfg Config) *Service {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	if cfg.RuntimeTimeout <= 0 {
		cfg.RuntimeTimeout = defaultRuntimeTimeout
	}
	s := &Service{
		runtime: runtime,
		cfg:     cfg,
		// Buffer of one: an immediate trigger arriving during an in-flight
		// refresh queues at most one extra cycle.
		refreshCh: make(chan struct{}, 1),
	}
	s.snapshot.Store(buildSnapshot(time.Now(), 0, nil))
	return s
}

// Run drives the refresh loop until ctx is cancelled. Transient runtime
// failures are logged and the previous snapshot stays published.
func (s *Service) Run(ctx context.Context) {
	logger.Info("inventory refresh loop started", "interval", s.cfg.RefreshInterval)

	s.refreshOnce(ctx)

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshOnce(ctx)
		case <-s.refreshCh:
			s.refreshOnce(ctx)
		}
	}
}

func (s *Service) refreshOnce(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		telemetry.RefreshFailures.Inc()
		logger.Warn("inventory refresh failed, keeping previous snapshot", "error", err)
	}
}

// Refresh lists the fleet and atomically publishes a new snapshot.
func (s *Service) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RuntimeTimeout)
	defer cancel()

	containers, err := s.runtime.ListContainers(ctx)
	if err != nil {
		return err
	}

	snap := buildSnapshot(time.Now(), s.generation.Add(1), containers)
	s.snapshot.Store(snap)

	logger.Debug("inventory refreshed",
		"generation", snap.Generation,
		"containers", len(snap.Containers),
		"stacks", len(snap.Stacks))
	return nil
}

// TriggerRefresh requests an immediate refresh. Triggers arriving while a
// refresh is queued coalesce into that one cycle.
func (s *Service) TriggerRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the currently published snapshot.
func (s *Service) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Query filters the current snapshot.
func (s *Service) Query(filters in.QueryFilters) []domain.Container {
	return s.Snapshot().Query(filters)
}

// Stacks returns the derived stacks of the current snapshot.
func (s *Service) Stacks() []domain.Stack {
	return s.Snapshot().Stacks
}

// Container looks up one container in the current snapshot.
func (s *Service) Container(name string) (domain.Container, bool) {
	return s.Snapshot().Container(name)
}
