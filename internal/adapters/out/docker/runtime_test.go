package docker

import (
	"bytes"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckhand/internal/domain"
)

func TestStackFromLabels(t *testing.T) {
	assert.Equal(t, "shop", stackFromLabels(map[string]string{
		labelComposeProject: "shop",
	}))
	assert.Equal(t, "override", stackFromLabels(map[string]string{
		labelComposeProject: "shop",
		labelStack:          "override",
	}))
	assert.Empty(t, stackFromLabels(map[string]string{}))
}

func TestNormalizeStats(t *testing.T) {
	raw := &container.StatsResponse{}
	raw.CPUStats.CPUUsage.TotalUsage = 400
	raw.PreCPUStats.CPUUsage.TotalUsage = 200
	raw.CPUStats.SystemUsage = 2000
	raw.PreCPUStats.SystemUsage = 1000
	raw.CPUStats.OnlineCPUs = 2
	raw.MemoryStats.Usage = 512 * 1024 * 1024
	raw.MemoryStats.Limit = 1024 * 1024 * 1024

	got := normalizeStats(raw)
	assert.InDelta(t, 40, got.CPUPercent, 0.001, "delta ratio times CPU count times 100")
	assert.InDelta(t, 512, got.MemUsageMB, 0.001)
	assert.InDelta(t, 50, got.MemPercent, 0.001)
}

func TestNormalizeStatsFallbacks(t *testing.T) {
	t.Run("percpu slice when online count missing", func(t *testing.T) {
		raw := &container.StatsResponse{}
		raw.CPUStats.CPUUsage.TotalUsage = 300
		raw.PreCPUStats.CPUUsage.TotalUsage = 100
		raw.CPUStats.SystemUsage = 2000
		raw.PreCPUStats.SystemUsage = 1000
		raw.CPUStats.CPUUsage.PercpuUsage = []uint64{1, 1, 1, 1}

		got := normalizeStats(raw)
		assert.InDelta(t, 80, got.CPUPercent, 0.001)
	})

	t.Run("zero system delta yields zero CPU", func(t *testing.T) {
		raw := &container.StatsResponse{}
		raw.CPUStats.CPUUsage.TotalUsage = 300
		raw.PreCPUStats.CPUUsage.TotalUsage = 100

		got := normalizeStats(raw)
		assert.Zero(t, got.CPUPercent)
	})

	t.Run("zero memory limit yields zero percent", func(t *testing.T) {
		raw := &container.StatsResponse{}
		raw.MemoryStats.Usage = 100

		got := normalizeStats(raw)
		assert.Zero(t, got.MemPercent)
	})
}

func TestNetworkRates(t *testing.T) {
	r := NewRuntimeWithClient(nil)
	base := time.Now()

	rx, tx := r.networkRates("web", 10240, 2048, base)
	assert.Zero(t, rx, "first reading has no baseline")
	assert.Zero(t, tx)

	rx, tx = r.networkRates("web", 10240+4096, 2048+1024, base.Add(2*time.Second))
	assert.InDelta(t, 2, rx, 0.001, "4KB over 2s")
	assert.InDelta(t, 0.5, tx, 0.001)

	// Counter reset (container restart): report zero for the interval.
	rx, tx = r.networkRates("web", 100, 50, base.Add(4*time.Second))
	assert.Zero(t, rx)
	assert.Zero(t, tx)
}

func TestSumNetworkBytes(t *testing.T) {
	raw := &container.StatsResponse{
		Networks: map[string]container.NetworkStats{
			"eth0": {RxBytes: 100, TxBytes: 10},
			"eth1": {RxBytes: 200, TxBytes: 20},
		},
	}
	rx, tx := sumNetworkBytes(raw)
	assert.Equal(t, uint64(300), rx)
	assert.Equal(t, uint64(30), tx)
}

func TestMapEvent(t *testing.T) {
	t.Run("lifecycle action", func(t *testing.T) {
		ev, ok := mapEvent(events.Message{
			Action:   "die",
			TimeNano: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixNano(),
			Actor: events.Actor{Attributes: map[string]string{
				"name":              "web",
				labelComposeProject: "shop",
			}},
		})
		require.True(t, ok)
		assert.Equal(t, domain.EventActionDie, ev.Action)
		assert.Equal(t, "web", ev.Container)
		assert.Equal(t, "shop", ev.Stack)
		assert.True(t, ev.Critical)
	})

	t.Run("health status collapses suffix", func(t *testing.T) {
		ev, ok := mapEvent(events.Message{
			Action: "health_status: unhealthy",
			Actor:  events.Actor{Attributes: map[string]string{"name": "web"}},
		})
		require.True(t, ok)
		assert.Equal(t, domain.EventActionHealthStatus, ev.Action)
		assert.False(t, ev.Critical)
	})

	t.Run("non-lifecycle action skipped", func(t *testing.T) {
		_, ok := mapEvent(events.Message{Action: "exec_create: sh"})
		assert.False(t, ok)
	})

	t.Run("seconds fallback when nanos missing", func(t *testing.T) {
		ev, ok := mapEvent(events.Message{
			Action: "start",
			Time:   1767225600,
			Actor:  events.Actor{Attributes: map[string]string{"name": "web"}},
		})
		require.True(t, ok)
		assert.Equal(t, time.Unix(1767225600, 0), ev.Timestamp)
	})
}

func TestParseExecOutput(t *testing.T) {
	var framed bytes.Buffer
	_, err := stdcopy.NewStdWriter(&framed, stdcopy.Stdout).Write([]byte("out line\n"))
	require.NoError(t, err)
	_, err = stdcopy.NewStdWriter(&framed, stdcopy.Stderr).Write([]byte("err line\n"))
	require.NoError(t, err)

	stdout, stderr, err := parseExecOutput(&framed)
	require.NoError(t, err)
	assert.Equal(t, "out line\n", string(stdout))
	assert.Equal(t, "err line\n", string(stderr))
}
