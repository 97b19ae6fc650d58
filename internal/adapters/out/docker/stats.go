package docker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/docker/docker/api/types/container"

	"deckhand/internal/domain"
)

// GetStats reads one non-streaming stats sample for a running container and
// normalizes it into domain units.
func (r *Runtime) GetStats(ctx context.Context, name string) (*domain.ContainerStats, error) {
	resp, err := r.client.ContainerStats(ctx, name, false)
	if err != nil {
		return nil, r.wrap(err, "get container stats")
	}
	defer resp.Body.Close()

	var raw container.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, r.wrap(err, "decode container stats")
	}

	stats := normalizeStats(&raw)

	// Network counters are cumulative; rates come from the delta against the
	// previous reading for this container. The first reading yields zero.
	rx, tx := sumNetworkBytes(&raw)
	stats.NetRxKBps, stats.NetTxKBps = r.networkRates(name, rx, tx, time.Now())

	return stats, nil
}

// normalizeStats applies the Docker CPU-delta formula and memory conversion.
// Values are returned raw: CPU above 100% on oversubscribed hosts is kept.
func normalizeStats(s *container.StatsResponse) *domain.ContainerStats {
	var cpuPct float64
	cpuDelta := float64(s.CPUStats.CPUUsage.TotalUsage) - float64(s.PreCPUStats.CPUUsage.TotalUsage)
	sysDelta := float64(s.CPUStats.SystemUsage) - float64(s.PreCPUStats.SystemUsage)

	cpus := float64(s.CPUStats.OnlineCPUs)
	if cpus == 0 {
		cpus = float64(len(s.CPUStats.CPUUsage.PercpuUsage))
		if cpus == 0 {
			cpus = 1
		}
	}
	if sysDelta > 0 && cpuDelta >= 0 {
		cpuPct = (cpuDelta / sysDelta) * cpus * 100
	}

	memUsage := float64(s.MemoryStats.Usage)
	var memPct float64
	if s.MemoryStats.Limit > 0 {
		memPct = memUsage / float64(s.MemoryStats.Limit) * 100
	}

	return &domain.ContainerStats{
		CPUPercent: cpuPct,
		MemUsageMB: memUsage / 1024 / 1024,
		MemPercent: memPct,
	}
}

func sumNetworkBytes(s *container.StatsResponse) (rx, tx uint64) {
	for _, n := range s.Networks {
		rx += n.RxBytes
		tx += n.TxBytes
	}
	return rx, tx
}

// networkRates converts cumulative rx/tx byte counters into KB/s using the
// previous reading for the container. Counter resets (container restart)
// report zero for that interval.
func (r *Runtime) networkRates(name string, rx, tx uint64, now time.Time) (rxKBps, txKBps float64) {
	r.mu.Lock()
	prev, seen := r.rates[name]
	r.rates[name] = netReading{rx: rx, tx: tx, at: now}
	r.mu.Unlock()

	if !seen {
		return 0, 0
	}
	elapsed := now.Sub(prev.at).Seconds()
	if elapsed <= 0 {
		return 0, 0
	}
	if rx >= prev.rx {
		rxKBps = float64(rx-prev.rx) / elapsed / 1024
	}
	if tx >= prev.tx {
		txKBps = float64(tx-prev.tx) / elapsed / 1024
	}
	return rxKBps, txKBps
}
