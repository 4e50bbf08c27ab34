package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/example/medilink/internal/application"
)

// bindingBuffer bounds how many undelivered alerts a single connection may
// queue before pushes to it start failing. The durable store, not this
// buffer, is the source of truth for missed alerts.
const bindingBuffer = 16

// Binding represents one live provider connection registered in a Registry.
// Alerts pushed to the provider arrive on the Alerts channel.
type Binding struct {
	providerID string
	alerts     chan application.Alert
	done       chan struct{}
	closeOnce  sync.Once
}

// ProviderID returns the provider this binding belongs to.
func (b *Binding) ProviderID() string {
	return b.providerID
}

// Alerts returns the channel the registry pushes alerts on. The channel is
// never closed; readers should also select on Done.
func (b *Binding) Alerts() <-chan application.Alert {
	return b.alerts
}

// Done is closed when the binding leaves the registry.
func (b *Binding) Done() <-chan struct{} {
	return b.done
}

func (b *Binding) close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Registry tracks the live connections of providers and pushes alerts to
// them. It implements the notifier side of the alert fan-out; delivery is
// best effort and a provider without connections simply receives nothing.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]map[*Binding]struct{}
	logger   *slog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		bindings: make(map[string]map[*Binding]struct{}),
		logger:   logger,
	}
}

// Join registers a new connection for the provider and returns its binding.
// A provider may hold several bindings at once, one per connection.
func (r *Registry) Join(providerID string) *Binding {
	binding := &Binding{
		providerID: providerID,
		alerts:     make(chan application.Alert, bindingBuffer),
		done:       make(chan struct{}),
	}

	r.mu.Lock()
	set, ok := r.bindings[providerID]
	if !ok {
		set = make(map[*Binding]struct{})
		r.bindings[providerID] = set
	}
	set[binding] = struct{}{}
	r.mu.Unlock()

	r.logger.Debug("provider connection joined", "provider_id", providerID)
	return binding
}

// Leave removes a binding from the registry. Leaving twice, or leaving a
// binding that never joined, is a no-op.
func (r *Registry) Leave(binding *Binding) {
	if binding == nil {
		return
	}

	r.mu.Lock()
	if set, ok := r.bindings[binding.providerID]; ok {
		delete(set, binding)
		if len(set) == 0 {
			delete(r.bindings, binding.providerID)
		}
	}
	r.mu.Unlock()

	binding.close()
}

// Connections reports how many live connections a provider currently holds.
func (r *Registry) Connections(providerID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings[providerID])
}

// Deliver pushes an alert to every live connection of the provider. A
// provider with no connections is not an error: the alert is already
// durable and surfaces through the unread query on the next connect. An
// error is returned only when connections exist and none accepted the push.
func (r *Registry) Deliver(ctx context.Context, providerID string, alert application.Alert) error {
	r.mu.RLock()
	set := r.bindings[providerID]
	bindings := make([]*Binding, 0, len(set))
	for binding := range set {
		bindings = append(bindings, binding)
	}
	r.mu.RUnlock()

	if len(bindings) == 0 {
		return nil
	}

	accepted := 0
	for _, binding := range bindings {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-binding.done:
		case binding.alerts <- alert:
			accepted++
		default:
			// Buffer full; the connection is not draining.
			r.logger.Warn("alert push dropped", "provider_id", providerID, "alert_id", alert.ID)
		}
	}

	if accepted == 0 {
		return fmt.Errorf("realtime: no connection accepted alert for provider %s", providerID)
	}
	return nil
}
