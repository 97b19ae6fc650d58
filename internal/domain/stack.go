package domain

// StackHealth is the derived health of a stack.
type StackHealth string

const (
	StackHealthy  StackHealth = "healthy"
	StackDegraded StackHealth = "degraded"
	StackDown     StackHealth = "down"
)

// Stack is a named grouping of containers with state derived from its members.
// RunningCount, TotalCount, Health and the aggregated stats are recomputed on
// every inventory refresh and never set independently.
type Stack struct {
	Name         string      `json:"name"`
	Containers   []string    `json:"containers"`
	RunningCount int         `json:"running_count"`
	TotalCount   int         `json:"total_count"`
	Health       StackHealth `json:"health"`
	CPUPercent   float64     `json:"cpu_percent"`
	MemUsageMB   float64     `json:"mem_usage_mb"`
}

// DeriveStackHealth computes health purely from the member counts:
// healthy iff every member runs and there is at least one member, down iff
// nothing runs, degraded otherwise.
func DeriveStackHealth(running, total int) StackHealth {
	switch {
	case total > 0 && running == total:
		return StackHealthy
	case running == 0:
		return StackDown
	default:
		return StackDegraded
	}
}
