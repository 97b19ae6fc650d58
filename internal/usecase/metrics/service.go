// Package metrics samples the inventory snapshot on a fixed cadence and
// serves windowed usage history per scope.
package metrics

import (
	"context"
	"sync"
	"time"

	"deckhand/internal/domain"
	"deckhand/internal/telemetry"
	"deckhand/internal/usecase/inventory"
	"deckhand/pkg/logger"
)

const (
	defaultSampleInterval = 60 * time.Second
	defaultRetention      = time.Hour
)

// SnapshotProvider is the slice of the inventory the aggregator needs.
type SnapshotProvider interface {
	Snapshot() *inventory.Snapshot
}

// Config holds the sampling settings.
type Config struct {
	SampleInterval time.Duration
	Retention      time.Duration
	PerContainer   bool
}

// Service implements in.MetricsService. Each scope owns a bounded ring buffer
// sized retention/cadence; only Sample appends, reads copy out under RLock.
type Service struct {
	snapshots SnapshotProvider
	cfg       Config
	capacity  int

	mu     sync.RWMutex
	series map[string]*ring
}

// NewService creates a metrics aggregator over the given snapshot source.
func NewService(snapshots SnapshotProvider, cfg Config) *Service {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = defaultSampleInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	capacity := int(cfg.Retention / cfg.SampleInterval)
	if capacity < 1 {
		capacity = 1
	}
	return &Service{
		snapshots: snapshots,
		cfg:       cfg,
		capacity:  capacity,
		series:    make(map[string]*ring),
	}
}

// Run drives the sampling loop until ctx is cancelled. The cadence is
// independent of the inventory refresh cadence.
func (s *Service) Run(ctx context.Context) {
	logger.Info("metrics sampling loop started",
		"interval", s.cfg.SampleInterval,
		"retention", s.cfg.Retention,
		"per_container", s.cfg.PerContainer)

	ticker := time.NewTicker(s.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Sample(now)
		}
	}
}

// Sample appends one MetricSample per tracked scope from the current
// snapshot. Raw values are stored unclamped.
func (s *Service) Sample(now time.Time) {
	snap := s.snapshots.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLocked(domain.ScopeGlobal, globalSample(now, snap))

	for _, st := range snap.Stacks {
		s.appendLocked(domain.StackScope(st.Name), stackSample(now, snap, st))
	}

	if s.cfg.PerContainer {
		for _, c := range snap.Containers {
			s.appendLocked(domain.ContainerScope(c.Name), containerSample(now, c))
		}
	}
}

func (s *Service) appendLocked(scope string, sample domain.MetricSample) {
	r, ok := s.series[scope]
	if !ok {
		r = newRing(s.capacity)
		s.series[scope] = r
	}
	r.append(sample)
	telemetry.SamplesTaken.Inc()
}

// History returns retained samples for scope with timestamp >= now-duration,
// oldest first. A duration beyond retention returns the full window; a scope
// that was never sampled returns an empty series, not an error.
func (s *Service) History(scope string, duration time.Duration) []domain.MetricSample {
	s.mu.RLock()
	r, ok := s.series[scope]
	var samples []domain.MetricSample
	if ok {
		samples = r.all()
	}
	s.mu.RUnlock()

	if len(samples) == 0 {
		return []domain.MetricSample{}
	}

	cutoff := time.Now().Add(-duration)
	for i, sample := range samples {
		if !sample.Timestamp.Before(cutoff) {
			return samples[i:]
		}
	}
	return []domain.MetricSample{}
}

func globalSample(now time.Time, snap *inventory.Snapshot) domain.MetricSample {
	var cpu, memMB, memPct float64
	var running, withStats int
	for _, c := range snap.Containers {
		if !c.Running() {
			continue
		}
		running++
		if c.Stats == nil {
			continue
		}
		withStats++
		cpu += c.Stats.CPUPercent
		memMB += c.Stats.MemUsageMB
		memPct += c.Stats.MemPercent
	}
	if withStats > 0 {
		memPct /= float64(withStats)
	}
	return domain.MetricSample{
		Timestamp:    now,
		CPUPercent:   cpu,
		MemPercent:   memPct,
		MemUsageMB:   memMB,
		RunningCount: running,
	}
}

func stackSample(now time.Time, snap *inventory.Snapshot, st domain.Stack) domain.MetricSample {
	var memPct float64
	var withStats int
	for _, name := range st.Containers {
		c, ok := snap.Container(name)
		if !ok || !c.Running() || c.Stats == nil {
			continue
		}
		withStats++
		memPct += c.Stats.MemPercent
	}
	if withStats > 0 {
		memPct /= float64(withStats)
	}
	return domain.MetricSample{
		Timestamp:    now,
		CPUPercent:   st.CPUPercent,
		MemPercent:   memPct,
		MemUsageMB:   st.MemUsageMB,
		RunningCount: st.RunningCount,
	}
}

func containerSample(now time.Time, c domain.Container) domain.MetricSample {
	sample := domain.MetricSample{Timestamp: now}
	if c.Running() {
		sample.RunningCount = 1
		if c.Stats != nil {
			sample.CPUPercent = c.Stats.CPUPercent
			sample.MemPercent = c.Stats.MemPercent
			sample.MemUsageMB = c.Stats.MemUsageMB
		}
	}
	return sample
}
