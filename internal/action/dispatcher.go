// Package action runs the plugin actions bound to a gesture kind whenever an event
// of that kind is broadcast.
package action

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ayusman/gesturecast/internal/gesture"
	"github.com/ayusman/gesturecast/internal/metrics"
	"github.com/ayusman/gesturecast/internal/plugin"
	"github.com/ayusman/gesturecast/internal/store"
)

// DefaultMaxInFlight bounds concurrently running plugin actions.
const DefaultMaxInFlight = 4

// Bindings looks up the enabled actions for a gesture kind.
type Bindings interface {
	ListByKind(kind gesture.Kind) ([]*store.Action, error)
}

// Resolver finds a plugin that declares an action.
type Resolver interface {
	Resolve(name, action string) (*plugin.Plugin, error)
}

// Runner executes a plugin request.
type Runner interface {
	Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error)
}

// Dispatcher is a broadcast sink. Handle never blocks: lookups and plugin runs
// happen on background goroutines, and events arriving while every slot is busy
// are dropped.
type Dispatcher struct {
	bindings Bindings
	plugins  Resolver
	runner   Runner
	slots    chan struct{}
	wg       sync.WaitGroup

	stop     chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a Dispatcher. Call Close to stop it.
func NewDispatcher(bindings Bindings, plugins Resolver, runner Runner, maxInFlight int) *Dispatcher {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Dispatcher{
		bindings: bindings,
		plugins:  plugins,
		runner:   runner,
		slots:    make(chan struct{}, maxInFlight),
		stop:     make(chan struct{}),
	}
}

// Handle schedules the actions bound to e.Kind.
func (d *Dispatcher) Handle(e gesture.Event) {
	select {
	case <-d.stop:
		return
	default:
	}

	select {
	case d.slots <- struct{}{}:
	default:
		metrics.ActionExecutionsTotal.WithLabelValues("dropped").Inc()
		slog.Warn("Action dispatcher busy, dropping event", "event", e.String())
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.slots }()
		d.dispatch(e)
	}()
}

// Wait blocks until all scheduled actions have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting events, cancels running plugin actions and waits for
// them to return.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() { close(d.stop) })
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(e gesture.Event) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-d.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	actions, err := d.bindings.ListByKind(e.Kind)
	if err != nil {
		slog.Error("Failed to load action bindings", "kind", e.Kind, "error", err)
		return
	}
	if len(actions) == 0 {
		return
	}

	params, err := json.Marshal(e)
	if err != nil {
		slog.Error("Failed to encode event for plugin", "kind", e.Kind, "error", err)
		return
	}

	for _, a := range actions {
		d.run(ctx, a, e, params)
	}
}

func (d *Dispatcher) run(ctx context.Context, a *store.Action, e gesture.Event, params json.RawMessage) {
	log := slog.With("action_id", a.ID, "plugin", a.PluginName, "action", a.ActionName, "kind", e.Kind)

	p, err := d.plugins.Resolve(a.PluginName, a.ActionName)
	if err != nil {
		metrics.ActionExecutionsTotal.WithLabelValues("error").Inc()
		log.Warn("Bound plugin action unavailable", "error", err)
		return
	}

	resp, err := d.runner.Execute(ctx, p, &plugin.Request{
		Action:  a.ActionName,
		Gesture: string(e.Kind),
		Config:  a.Config,
		Params:  params,
	})
	switch {
	case err != nil:
		metrics.ActionExecutionsTotal.WithLabelValues("error").Inc()
		log.Warn("Plugin action failed", "error", err)
	case !resp.Success:
		metrics.ActionExecutionsTotal.WithLabelValues("error").Inc()
		log.Warn("Plugin action reported failure", "error", resp.Error)
	default:
		metrics.ActionExecutionsTotal.WithLabelValues("success").Inc()
		log.Debug("Plugin action succeeded")
	}
}
