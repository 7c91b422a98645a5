package ozw

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// defaultSubscriptionBuffer is the channel capacity when SubscribeOptions.Buffer is zero.
const defaultSubscriptionBuffer = 64

// SubscribeOptions configures a Subscription.
type SubscribeOptions struct {
	// HomeIDs limits delivery to these homes. Empty means every home.
	HomeIDs []uint32

	// Types limits delivery to these notification types. Empty means all.
	Types []NotificationType

	// Buffer is the channel capacity. Notifications arriving while the
	// buffer is full are dropped and counted.
	Buffer int
}

// Subscription is a Watcher that forwards notifications to a channel.
//
// The channel is closed by Close or when the Manager is destroyed.
type Subscription struct {
	id      string
	manager *Manager
	homes   []uint32
	types   []NotificationType
	ch      chan Notification
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// Subscribe registers a new Subscription with the live Manager.
func (m *Manager) Subscribe(opts SubscribeOptions) (*Subscription, error) {
	if !m.alive.Load() {
		return nil, ErrNoManager
	}

	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}

	s := &Subscription{
		id:      uuid.NewString(),
		manager: m,
		homes:   slices.Clone(opts.HomeIDs),
		types:   slices.Clone(opts.Types),
		ch:      make(chan Notification, buffer),
	}
	if !m.AddWatcher(s) {
		return nil, ErrNoManager
	}
	return s, nil
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() string {
	return s.id
}

// C returns the notification channel.
func (s *Subscription) C() <-chan Notification {
	return s.ch
}

// Dropped returns how many notifications were discarded because the
// channel was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// OnNotification implements Watcher. It never blocks the engine.
func (s *Subscription) OnNotification(n Notification) {
	if len(s.homes) > 0 && !slices.Contains(s.homes, n.HomeID) {
		return
	}
	if len(s.types) > 0 && !slices.Contains(s.types, n.Type) {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- n:
	default:
		s.dropped.Add(1)
	}
}

// Close unregisters the subscription and closes its channel. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.manager.RemoveWatcher(s)
	s.closeChannel()
}

func (s *Subscription) closeChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
