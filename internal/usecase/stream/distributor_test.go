package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deckhand/internal/boundaries/out"
	"deckhand/internal/domain"
)

type fakeFeed struct {
	mu      sync.Mutex
	events  chan domain.Event
	errs    chan error
	pingErr error
	subs    int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		events: make(chan domain.Event),
		errs:   make(chan error, 1),
	}
}

func (f *fakeFeed) SubscribeEvents(context.Context) (<-chan domain.Event, <-chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs++
	return f.events, f.errs
}

func (f *fakeFeed) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeFeed) ListContainers(context.Context) ([]domain.Container, error) { return nil, nil }
func (f *fakeFeed) GetStats(context.Context, string) (*domain.ContainerStats, error) {
	return nil, nil
}
func (f *fakeFeed) Action(context.Context, string, out.ContainerAction) error { return nil }
func (f *fakeFeed) Exec(context.Context, string, []string) (*out.ExecOutput, error) {
	return nil, nil
}
func (f *fakeFeed) Logs(context.Context, string, int, time.Time) (string, error) {
	return "", nil
}

func event(n int) domain.Event {
	return domain.Event{
		Timestamp: time.Now(),
		Action:    domain.EventActionStart,
		Container: fmt.Sprintf("c%d", n),
	}
}

func TestSubscribeOpensWithConnectedMarker(t *testing.T) {
	d := NewDistributor(newFakeFeed(), Config{}, nil)
	sub := d.Subscribe()
	defer d.Unsubscribe(sub)

	msg := <-sub.C()
	assert.Equal(t, domain.StreamConnected, msg.Type)
}

func TestDispatchPreservesOrder(t *testing.T) {
	d := NewDistributor(newFakeFeed(), Config{}, nil)
	sub := d.Subscribe()
	defer d.Unsubscribe(sub)
	<-sub.C() // connected

	for i := 1; i <= 5; i++ {
		d.dispatch(event(i))
	}

	for i := 1; i <= 5; i++ {
		msg := <-sub.C()
		require.Equal(t, domain.StreamEvent, msg.Type)
		assert.Equal(t, fmt.Sprintf("c%d", i), msg.Event.Container)
	}
	assert.Equal(t, uint64(0), sub.Dropped())
}

func TestSlowSubscriberDropsOldestOnly(t *testing.T) {
	d := NewDistributor(newFakeFeed(), Config{QueueSize: 4}, nil)
	sub := d.Subscribe() // connected marker occupies one slot

	burst := 10
	for i := 1; i <= burst; i++ {
		d.dispatch(event(i))
	}

	// 11 messages pushed through a queue of 4: exactly 7 oldest shed.
	assert.Equal(t, uint64(7), sub.Dropped())

	var got []string
	var lastDropped uint64
	for len(sub.C()) > 0 {
		msg := <-sub.C()
		got = append(got, msg.Event.Container)
		lastDropped = msg.DroppedCount
	}
	assert.Equal(t, []string{"c7", "c8", "c9", "c10"}, got, "newest messages survive in order")
	assert.Equal(t, uint64(6), lastDropped, "messages report the drops known at enqueue time")

	d.Unsubscribe(sub)
}

func TestSlowSubscriberDoesNotAffectOthers(t *testing.T) {
	d := NewDistributor(newFakeFeed(), Config{QueueSize: 4}, nil)
	slow := d.Subscribe()
	fast := d.Subscribe()
	defer d.Unsubscribe(slow)
	defer d.Unsubscribe(fast)

	<-fast.C() // connected
	for i := 1; i <= 20; i++ {
		d.dispatch(event(i))
		<-fast.C() // fast keeps up, message by message
	}

	assert.Equal(t, uint64(17), slow.Dropped(), "21 messages through a queue of 4")
	assert.Equal(t, uint64(0), fast.Dropped())
}

func TestLateSubscriberGetsReplay(t *testing.T) {
	d := NewDistributor(newFakeFeed(), Config{ReplayDepth: 2}, nil)

	for i := 1; i <= 5; i++ {
		d.dispatch(event(i))
	}

	sub := d.Subscribe()
	defer d.Unsubscribe(sub)

	msg := <-sub.C()
	require.Equal(t, domain.StreamConnected, msg.Type)

	first := <-sub.C()
	second := <-sub.C()
	assert.Equal(t, "c4", first.Event.Container, "replay is capped at the configured depth")
	assert.Equal(t, "c5", second.Event.Container)
	assert.Empty(t, sub.C())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	d := NewDistributor(newFakeFeed(), Config{}, nil)
	sub := d.Subscribe()

	d.Unsubscribe(sub)
	d.Unsubscribe(sub) // idempotent

	<-sub.C() // connected
	_, open := <-sub.C()
	assert.False(t, open)
}

func TestDispatchInvokesHook(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	d := NewDistributor(newFakeFeed(), Config{}, func(ev domain.Event) {
		mu.Lock()
		seen = append(seen, ev.Container)
		mu.Unlock()
	})

	d.dispatch(event(1))
	d.dispatch(event(2))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"c1", "c2"}, seen)
}

func TestRunEmitsConnectivityMarkers(t *testing.T) {
	feed := newFakeFeed()
	d := NewDistributor(feed, Config{}, nil)
	d.reconnectInitial = 5 * time.Millisecond
	d.reconnectMax = 5 * time.Millisecond

	sub := d.Subscribe()
	defer d.Unsubscribe(sub)
	<-sub.C() // connected

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	feed.events <- event(1)
	msg := <-sub.C()
	require.Equal(t, domain.StreamEvent, msg.Type)

	// Upstream failure: subscribers see a lost marker, then a restored marker
	// once the runtime answers pings again.
	feed.errs <- domain.ErrRuntimeUnavailable

	msg = <-sub.C()
	assert.Equal(t, domain.StreamConnectionLost, msg.Type)

	msg = <-sub.C()
	assert.Equal(t, domain.StreamConnectionRestored, msg.Type)

	feed.events <- event(2)
	msg = <-sub.C()
	require.Equal(t, domain.StreamEvent, msg.Type)
	assert.Equal(t, "c2", msg.Event.Container)
}

// brokenFeed answers pings but fails every stream subscription immediately,
// the shape of a daemon whose Events endpoint is misbehaving.
type brokenFeed struct {
	mu   sync.Mutex
	subs int
}

func (f *brokenFeed) SubscribeEvents(context.Context) (<-chan domain.Event, <-chan error) {
	f.mu.Lock()
	f.subs++
	f.mu.Unlock()

	events := make(chan domain.Event)
	close(events)
	errs := make(chan error, 1)
	errs <- domain.ErrRuntimeUnavailable
	return events, errs
}

func (f *brokenFeed) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs
}

func (f *brokenFeed) Ping(context.Context) error { return nil }
func (f *brokenFeed) ListContainers(context.Context) ([]domain.Container, error) {
	return nil, nil
}
func (f *brokenFeed) GetStats(context.Context, string) (*domain.ContainerStats, error) {
	return nil, nil
}
func (f *brokenFeed) Action(context.Context, string, out.ContainerAction) error { return nil }
func (f *brokenFeed) Exec(context.Context, string, []string) (*out.ExecOutput, error) {
	return nil, nil
}
func (f *brokenFeed) Logs(context.Context, string, int, time.Time) (string, error) {
	return "", nil
}

func TestRunBacksOffWhenStreamFailsDespiteHealthyPing(t *testing.T) {
	feed := &brokenFeed{}
	d := NewDistributor(feed, Config{}, nil)
	d.reconnectInitial = 20 * time.Millisecond
	d.reconnectMax = 40 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	d.Run(ctx)

	// With a 20ms initial backoff a 300ms window fits a handful of attempts.
	// An unthrottled loop would resubscribe tens of thousands of times.
	attempts := feed.subscribeCount()
	assert.GreaterOrEqual(t, attempts, 2, "the loop keeps retrying")
	assert.LessOrEqual(t, attempts, 20, "every reconnect waits out the backoff")
}
