package docker

import (
	"context"
	"strings"
	"time"

	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"

	"deckhand/internal/domain"
	"deckhand/pkg/logger"
)

// SubscribeEvents opens the daemon's container event feed and maps messages
// onto domain events. Actions outside the lifecycle set (exec_create,
// attach, ...) are skipped. The returned channels close when ctx is cancelled
// or the stream fails; the failure is delivered on the error channel so the
// caller can drive its own reconnect policy.
func (r *Runtime) SubscribeEvents(ctx context.Context) (<-chan domain.Event, <-chan error) {
	evCh := make(chan domain.Event)
	errCh := make(chan error, 1)

	f := filters.NewArgs(filters.Arg("type", "container"))
	messages, errs := r.client.Events(ctx, events.ListOptions{Filters: f})

	go func() {
		defer close(evCh)
		defer close(errCh)

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				if err != nil && ctx.Err() == nil {
					errCh <- r.wrap(err, "event stream")
				}
				return
			case msg := <-messages:
				ev, ok := mapEvent(msg)
				if !ok {
					continue
				}
				select {
				case evCh <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	logger.Debug("subscribed to container event feed")
	return evCh, errCh
}

// mapEvent converts a daemon event message into a domain event. Health events
// arrive as "health_status: healthy" and collapse onto one action.
func mapEvent(msg events.Message) (domain.Event, bool) {
	action := string(msg.Action)
	if strings.HasPrefix(action, string(domain.EventActionHealthStatus)) {
		action = string(domain.EventActionHealthStatus)
	}

	switch domain.EventAction(action) {
	case domain.EventActionCreate, domain.EventActionStart, domain.EventActionStop,
		domain.EventActionRestart, domain.EventActionDie, domain.EventActionDestroy,
		domain.EventActionHealthStatus:
	default:
		return domain.Event{}, false
	}

	ts := time.Unix(0, msg.TimeNano)
	if msg.TimeNano == 0 {
		ts = time.Unix(msg.Time, 0)
	}

	a := domain.EventAction(action)
	return domain.Event{
		Timestamp: ts,
		Action:    a,
		Container: msg.Actor.Attributes["name"],
		Stack:     stackFromLabels(msg.Actor.Attributes),
		Critical:  domain.CriticalAction(a),
	}, true
}
