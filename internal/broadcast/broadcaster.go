package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/metrics"
	"github.com/ayusman/gesturecast/internal/queue"
)

// Defaults for Options.
const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultSendTimeout  = time.Second
)

// Sink observes every event after it has been fanned out to subscribers.
// Handle runs on the broadcast goroutine and must not block.
type Sink interface {
	Handle(e gesture.Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(e gesture.Event)

func (f SinkFunc) Handle(e gesture.Event) { f(e) }

// Options configures a Broadcaster. Zero values take the defaults.
type Options struct {
	PollInterval time.Duration
	SendTimeout  time.Duration
	Clock        clockwork.Clock
	Sinks        []Sink
}

// Broadcaster drains the event queue and writes each event to every registered client.
type Broadcaster struct {
	queue        *queue.Queue[gesture.Event]
	registry     *Registry
	pollInterval time.Duration
	sendTimeout  time.Duration
	clock        clockwork.Clock
	sinks        []Sink
}

// NewBroadcaster creates a Broadcaster over q and reg.
func NewBroadcaster(q *queue.Queue[gesture.Event], reg *Registry, opts Options) *Broadcaster {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Broadcaster{
		queue:        q,
		registry:     reg,
		pollInterval: opts.PollInterval,
		sendTimeout:  opts.SendTimeout,
		clock:        opts.Clock,
		sinks:        opts.Sinks,
	}
}

// Run processes events in FIFO order until ctx is cancelled. An empty queue is
// polled again after the poll interval.
func (b *Broadcaster) Run(ctx context.Context) {
	slog.Info("Broadcaster started", "poll_interval", b.pollInterval, "send_timeout", b.sendTimeout)
	defer slog.Info("Broadcaster stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		e, ok := b.queue.TryDequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-b.clock.After(b.pollInterval):
			}
			continue
		}

		metrics.EventQueueDepth.Set(float64(b.queue.Len()))
		b.Deliver(e)
	}
}

// Deliver fans a single event out to every client registered at call time and
// returns how many writes succeeded. Clients whose write fails are removed and closed;
// the rest are unaffected.
func (b *Broadcaster) Deliver(e gesture.Event) int {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("Failed to encode gesture event", "kind", e.Kind, "error", err)
		return 0
	}

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	for _, c := range b.registry.Snapshot() {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()

			start := b.clock.Now()
			err := c.Send(data, time.Now().Add(b.sendTimeout))
			metrics.WebSocketMessageSendDuration.Observe(b.clock.Since(start).Seconds())

			if err != nil {
				metrics.BroadcastDeliveryFailuresTotal.Inc()
				slog.Warn("Dropping subscriber after failed send", "client_id", c.ID, "error", err)
				if b.registry.Remove(c.ID) {
					c.Close()
				}
				return
			}
			delivered.Add(1)
		}(c)
	}
	wg.Wait()

	if !e.At.IsZero() {
		metrics.EventBroadcastLatency.Observe(b.clock.Since(e.At).Seconds())
	}
	slog.Debug("Event broadcast", "event", e.String(), "delivered", delivered.Load())

	for _, s := range b.sinks {
		s.Handle(e)
	}
	return int(delivered.Load())
}
