package inventory

import (
	"sort"
	"strings"
	"time"

	"deckhand/internal/boundaries/in"
	"deckhand/internal/domain"
)

// Snapshot is one immutable view of the fleet. Readers hold whatever snapshot
// was current when they started; a refresh publishes a brand-new one and never
// mutates a published snapshot in place.
type Snapshot struct {
	TakenAt    time.Time
	Generation uint64
	Containers []domain.Container
	Stacks     []domain.Stack

	byName map[string]int
}

// buildSnapshot derives stacks (counts, health, aggregated stats) from the
// container listing. Containers without stack membership are listed but join
// no roll-up.
func buildSnapshot(takenAt time.Time, generation uint64, containers []domain.Container) *Snapshot {
	sorted := make([]domain.Container, len(containers))
	copy(sorted, containers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	byName := make(map[string]int, len(sorted))
	stacks := make(map[string]*domain.Stack)
	for i, c := range sorted {
		byName[c.Name] = i
		if c.Stack == "" {
			continue
		}
		st, ok := stacks[c.Stack]
		if !ok {
			st = &domain.Stack{Name: c.Stack}
			stacks[c.Stack] = st
		}
		st.Containers = append(st.Containers, c.Name)
		st.TotalCount++
		if c.Running() {
			st.RunningCount++
			if c.Stats != nil {
				st.CPUPercent += c.Stats.CPUPercent
				st.MemUsageMB += c.Stats.MemUsageMB
			}
		}
	}

	stackList := make([]domain.Stack, 0, len(stacks))
	for _, st := range stacks {
		st.Health = domain.DeriveStackHealth(st.RunningCount, st.TotalCount)
		stackList = append(stackList, *st)
	}
	sort.Slice(stackList, func(i, j int) bool { return stackList[i].Name < stackList[j].Name })

	return &Snapshot{
		TakenAt:    takenAt,
		Generation: generation,
		Containers: sorted,
		Stacks:     stackList,
		byName:     byName,
	}
}

// Container looks up one container by name.
func (s *Snapshot) Container(name string) (domain.Container, bool) {
	i, ok := s.byName[name]
	if !ok {
		return domain.Container{}, false
	}
	return s.Containers[i], true
}

// Query filters the snapshot's containers. It is a pure read: the result is a
// fresh slice and the snapshot is never touched.
func (s *Snapshot) Query(filters in.QueryFilters) []domain.Container {
	search := strings.ToLower(filters.Search)

	result := make([]domain.Container, 0, len(s.Containers))
	for _, c := range s.Containers {
		if filters.Stack != "" && c.Stack != filters.Stack {
			continue
		}
		if filters.Category != "" && c.Category != filters.Category {
			continue
		}
		if filters.Status != "" && c.Status != filters.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(strings.ToLower(c.Category), search) {
			continue
		}
		result = append(result, c)
	}
	return result
}
