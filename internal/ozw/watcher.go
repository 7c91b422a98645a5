package ozw

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Watcher receives engine notifications.
//
// OnNotification is called on the engine's notification goroutine and may
// run concurrently with the caller's own use of the watcher's state.
// Watchers are registered by identity, so implementations are normally
// pointer types.
type Watcher interface {
	OnNotification(n Notification)
}

// WatcherFunc adapts a function to a Watcher. A *WatcherFunc has a stable
// identity and can be registered; the function value itself cannot.
type WatcherFunc func(n Notification)

// OnNotification calls f(n).
func (f *WatcherFunc) OnNotification(n Notification) {
	(*f)(n)
}

// registration is one live watcher. active is cleared on removal so that a
// dispatch holding an older snapshot skips it.
type registration struct {
	watcher Watcher
	active  atomic.Bool
}

// watcherSet is a copy-on-write registration set. Mutations take mu and
// publish a new snapshot; dispatch reads the current snapshot lock-free.
// A closed set accepts no further registrations.
type watcherSet struct {
	mu       sync.Mutex
	closed   bool
	index    map[Watcher]*registration
	snapshot atomic.Pointer[[]*registration]
}

func newWatcherSet() *watcherSet {
	s := &watcherSet{index: make(map[Watcher]*registration)}
	empty := []*registration{}
	s.snapshot.Store(&empty)
	return s
}

// add registers w. It reports false for nil, non-comparable or already
// registered watchers, and once the set is closed.
func (s *watcherSet) add(w Watcher) bool {
	if w == nil || !reflect.TypeOf(w).Comparable() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if _, exists := s.index[w]; exists {
		return false
	}

	reg := &registration{watcher: w}
	reg.active.Store(true)
	s.index[w] = reg

	current := *s.snapshot.Load()
	next := make([]*registration, len(current), len(current)+1)
	copy(next, current)
	next = append(next, reg)
	s.snapshot.Store(&next)
	return true
}

// remove unregisters w. It reports false if w was not registered.
func (s *watcherSet) remove(w Watcher) bool {
	if w == nil || !reflect.TypeOf(w).Comparable() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, exists := s.index[w]
	if !exists {
		return false
	}
	reg.active.Store(false)
	delete(s.index, w)

	current := *s.snapshot.Load()
	next := make([]*registration, 0, len(current))
	for _, r := range current {
		if r != reg {
			next = append(next, r)
		}
	}
	s.snapshot.Store(&next)
	return true
}

// close unregisters every watcher, returns them and refuses later adds.
func (s *watcherSet) close() []Watcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	current := *s.snapshot.Load()
	removed := make([]Watcher, 0, len(current))
	for _, r := range current {
		r.active.Store(false)
		removed = append(removed, r.watcher)
	}
	s.index = make(map[Watcher]*registration)
	empty := []*registration{}
	s.snapshot.Store(&empty)
	return removed
}

func (s *watcherSet) len() int {
	return len(*s.snapshot.Load())
}

func (s *watcherSet) contains(w Watcher) bool {
	if w == nil || !reflect.TypeOf(w).Comparable() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[w]
	return ok
}

// dispatch delivers n to every active registration in the current snapshot.
func (s *watcherSet) dispatch(n Notification, logger Logger) {
	for _, reg := range *s.snapshot.Load() {
		if !reg.active.Load() {
			continue
		}
		deliverSafely(reg.watcher, n, logger)
	}
}

// deliverSafely isolates the remaining watchers from a panicking one.
func deliverSafely(w Watcher, n Notification, logger Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("watcher panic recovered",
				"notification", n.Type.String(),
				"panic", r,
			)
		}
	}()
	w.OnNotification(n)
}
