package mqtt

import (
	"slices"
	"sync"
)

type subscription struct {
	qos     byte
	handler MessageHandler
}

// registry remembers subscriptions by filter so they can be replayed after
// the broker drops a clean session.
type registry struct {
	mu   sync.RWMutex
	subs map[string]subscription
}

func newRegistry() *registry {
	return &registry{subs: make(map[string]subscription)}
}

func (r *registry) put(filter string, s subscription) {
	r.mu.Lock()
	r.subs[filter] = s
	r.mu.Unlock()
}

func (r *registry) remove(filter string) {
	r.mu.Lock()
	delete(r.subs, filter)
	r.mu.Unlock()
}

// snapshot copies the registry so callers can talk to the broker unlocked.
func (r *registry) snapshot() map[string]subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]subscription, len(r.subs))
	for filter, s := range r.subs {
		out[filter] = s
	}
	return out
}

func (r *registry) filters() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.subs))
	for filter := range r.subs {
		out = append(out, filter)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}
