package domain

import "time"

// Metric scopes. Stack and container scopes are prefixed so one flat namespace
// can hold all tracked series.
const (
	ScopeGlobal          = "global"
	ScopeStackPrefix     = "stack:"
	ScopeContainerPrefix = "container:"
)

// MetricSample is one timestamped usage reading for a scope. Values are stored
// raw and unclamped; CPU above 100% (oversubscription) is preserved.
type MetricSample struct {
	Timestamp    time.Time `json:"timestamp"`
	CPUPercent   float64   `json:"cpu_percent"`
	MemPercent   float64   `json:"mem_percent"`
	MemUsageMB   float64   `json:"mem_usage_mb"`
	RunningCount int       `json:"running_count"`
}

// StackScope returns the metric scope name for a stack.
func StackScope(name string) string { return ScopeStackPrefix + name }

// ContainerScope returns the metric scope name for a container.
func ContainerScope(name string) string { return ScopeContainerPrefix + name }
