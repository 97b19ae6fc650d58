// Package in defines input ports: the service interfaces the driving
// adapters (HTTP) call into.
package in

import (
	"context"
	"time"

	"deckhand/internal/domain"
)

// QueryFilters narrows an inventory query. Zero values match everything.
// Search matches case-insensitively against container name and category.
type QueryFilters struct {
	Stack    string
	Category string
	Status   domain.ContainerStatus
	Search   string
}

// InventoryService serves reads over the current container/stack snapshot.
type InventoryService interface {
	Query(filters QueryFilters) []domain.Container
	Stacks() []domain.Stack
	Container(name string) (domain.Container, bool)
	TriggerRefresh()
}

// MetricsService serves windowed usage history per scope.
type MetricsService interface {
	History(scope string, duration time.Duration) []domain.MetricSample
}

// ExecService gates operator commands and dispatches allowed ones.
type ExecService interface {
	Submit(ctx context.Context, container, command string) (domain.ExecResult, error)
}

// ActionService forwards lifecycle actions and log reads to the runtime.
type ActionService interface {
	Action(ctx context.Context, container, action string) (string, error)
	Logs(ctx context.Context, container string, lines int, since time.Time) (string, error)
}
