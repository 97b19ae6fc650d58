package domain

// ContainerStatus describes the lifecycle state of a container.
type ContainerStatus string

const (
	ContainerStatusRunning    ContainerStatus = "running"
	ContainerStatusStopped    ContainerStatus = "stopped"
	ContainerStatusExited     ContainerStatus = "exited"
	ContainerStatusRestarting ContainerStatus = "restarting"
	ContainerStatusUnknown    ContainerStatus = "unknown"
)

// ContainerStats holds a point-in-time resource usage reading for a single
// container. Present only while the container is running.
type ContainerStats struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemUsageMB float64 `json:"mem_usage_mb"`
	MemPercent float64 `json:"mem_percent"`
	NetRxKBps  float64 `json:"net_rx_kb_per_s"`
	NetTxKBps  float64 `json:"net_tx_kb_per_s"`
}

// Container is one unit reported by the runtime. Name is the unique key;
// Stack and Category are derived from container labels and may be empty.
type Container struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Image    string          `json:"image"`
	Stack    string          `json:"stack,omitempty"`
	Category string          `json:"category,omitempty"`
	Status   ContainerStatus `json:"status"`
	Stats    *ContainerStats `json:"stats,omitempty"`
}

// Running reports whether the container is in the running state.
func (c Container) Running() bool {
	return c.Status == ContainerStatusRunning
}

// ParseContainerStatus maps a raw runtime state string onto the status enum.
// Unrecognized states map to unknown rather than failing.
func ParseContainerStatus(state string) ContainerStatus {
	switch state {
	case "running":
		return ContainerStatusRunning
	case "created", "paused", "stopped":
		return ContainerStatusStopped
	case "exited", "dead", "removing":
		return ContainerStatusExited
	case "restarting":
		return ContainerStatusRestarting
	default:
		return ContainerStatusUnknown
	}
}
