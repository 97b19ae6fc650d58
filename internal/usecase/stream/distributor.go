// Package stream fans the single upstream lifecycle feed out to any number of
// subscriber queues with independent delivery and drop-oldest backpressure.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"deckhand/internal/boundaries/out"
	"deckhand/internal/domain"
	"deckhand/internal/telemetry"
	"deckhand/pkg/logger"
)

const (
	defaultQueueSize   = 64
	defaultReplayDepth = 20

	reconnectInitial = time.Second
	reconnectMax     = 30 * time.Second
)

// Subscription is one viewer's bounded delivery queue. Messages arrive in
// upstream order; when the queue is full the oldest unread message is dropped
// and the dropped counter incremented.
type Subscription struct {
	id      string
	ch      chan domain.StreamMessage
	dropped atomic.Uint64
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// C is the delivery channel. It closes on Unsubscribe.
func (s *Subscription) C() <-chan domain.StreamMessage { return s.ch }

// Dropped returns how many messages were discarded for this subscriber.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Config holds the distributor settings.
type Config struct {
	QueueSize   int
	ReplayDepth int
}

// Distributor consumes the runtime's event feed and broadcasts to
// subscribers. A slow consumer only ever loses its own messages.
type Distributor struct {
	runtime out.ContainerRuntime
	cfg     Config

	// onEvent is invoked for every upstream event after broadcast; the server
	// wires it to the inventory's TriggerRefresh (push-to-pull).
	onEvent func(domain.Event)

	reconnectInitial time.Duration
	reconnectMax     time.Duration

	mu     sync.Mutex
	subs   map[string]*Subscription
	recent []domain.Event // replay ring, newest last
}

// NewDistributor creates a distributor over the given runtime feed.
func NewDistributor(runtime out.ContainerRuntime, cfg Config, onEvent func(domain.Event)) *Distributor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.ReplayDepth <= 0 {
		cfg.ReplayDepth = defaultReplayDepth
	}
	return &Distributor{
		runtime:          runtime,
		cfg:              cfg,
		onEvent:          onEvent,
		reconnectInitial: reconnectInitial,
		reconnectMax:     reconnectMax,
		subs:             make(map[string]*Subscription),
	}
}

// Subscribe creates a dedicated queue for one viewer. The queue opens with a
// connected marker followed by a replay of the most recent events, so late
// subscribers see recent history.
func (d *Distributor) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.New().String(),
		ch: make(chan domain.StreamMessage, d.cfg.QueueSize),
	}

	d.mu.Lock()
	d.subs[sub.id] = sub
	d.enqueue(sub, domain.StreamMessage{Type: domain.StreamConnected})
	for i := range d.recent {
		ev := d.recent[i]
		d.enqueue(sub, domain.StreamMessage{Type: domain.StreamEvent, Event: &ev})
	}
	d.mu.Unlock()

	telemetry.Subscribers.Inc()
	logger.Debug("event subscriber attached", "subscription", sub.id)
	return sub
}

// Unsubscribe releases a viewer's queue and closes its channel.
func (d *Distributor) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	d.mu.Lock()
	_, ok := d.subs[sub.id]
	if ok {
		delete(d.subs, sub.id)
		close(sub.ch)
	}
	d.mu.Unlock()

	if ok {
		telemetry.Subscribers.Dec()
		logger.Debug("event subscriber detached", "subscription", sub.id, "dropped", sub.Dropped())
	}
}

// Run consumes the upstream feed until ctx is cancelled, reconnecting with
// exponential backoff on stream failure. Every reconnect attempt waits out the
// backoff, whether the outage shows up as a failed ping or as an Events stream
// that errors straight away; the backoff resets only once a stream has
// actually delivered. Subscribers observe synthetic connection_lost /
// connection_restored markers around each outage.
func (d *Distributor) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.reconnectInitial
	bo.MaxInterval = d.reconnectMax
	bo.MaxElapsedTime = 0 // retry forever
	bo.Reset()            // the constructor snapshots currentInterval, so re-seed it from the fields above

	lost := false
	for ctx.Err() == nil {
		if lost {
			telemetry.UpstreamReconnects.Inc()
			wait := bo.NextBackOff()
			logger.Warn("runtime event feed lost, backing off before reconnect", "wait", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			if err := d.runtime.Ping(ctx); err != nil {
				logger.Warn("runtime still unreachable", "error", err)
				continue
			}
			lost = false
			d.Broadcast(domain.StreamMessage{Type: domain.StreamConnectionRestored})
			logger.Info("runtime event feed restored")
		}

		delivered, err := d.consume(ctx)
		if err != nil {
			logger.Warn("runtime event feed failed", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
		if delivered {
			bo.Reset()
		}
		lost = true
		d.Broadcast(domain.StreamMessage{Type: domain.StreamConnectionLost})
	}
}

// consume drains one upstream subscription until it fails or ctx ends. It
// reports whether the stream delivered any event before going down.
func (d *Distributor) consume(ctx context.Context) (bool, error) {
	events, errs := d.runtime.SubscribeEvents(ctx)

	delivered := false
	for {
		select {
		case <-ctx.Done():
			return delivered, nil
		case err := <-errs:
			return delivered, err
		case ev, ok := <-events:
			if !ok {
				return delivered, nil
			}
			d.dispatch(ev)
			delivered = true
		}
	}
}

func (d *Distributor) dispatch(ev domain.Event) {
	d.mu.Lock()
	d.recent = append(d.recent, ev)
	if len(d.recent) > d.cfg.ReplayDepth {
		d.recent = d.recent[len(d.recent)-d.cfg.ReplayDepth:]
	}
	for _, sub := range d.subs {
		e := ev
		d.enqueue(sub, domain.StreamMessage{Type: domain.StreamEvent, Event: &e})
		telemetry.EventsDistributed.Inc()
	}
	d.mu.Unlock()

	if d.onEvent != nil {
		d.onEvent(ev)
	}
}

// Broadcast delivers one message to every current subscriber without touching
// the replay ring. Connectivity markers travel this path.
func (d *Distributor) Broadcast(msg domain.StreamMessage) {
	d.mu.Lock()
	for _, sub := range d.subs {
		d.enqueue(sub, msg)
	}
	d.mu.Unlock()
}

// enqueue delivers without ever blocking the distributor: a full queue sheds
// its oldest unread message first. Each message carries the subscriber's
// cumulative drop count so a client can detect gaps. Callers hold d.mu, so
// the subscriber channel cannot close mid-send.
func (d *Distributor) enqueue(sub *Subscription, msg domain.StreamMessage) {
	msg.DroppedCount = sub.dropped.Load()
	select {
	case sub.ch <- msg:
		return
	default:
	}

	// Queue full: evict the oldest, then retry once. If a concurrent reader
	// raced us the retry succeeds; if the reader instead drained everything,
	// the first select below falls through harmlessly.
	select {
	case <-sub.ch:
		sub.dropped.Add(1)
		telemetry.EventsDropped.Inc()
	default:
	}

	select {
	case sub.ch <- msg:
	default:
		sub.dropped.Add(1)
		telemetry.EventsDropped.Inc()
	}
}
