package ozw

import (
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the logging interface used by the Manager.
// It is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Options configures Create.
type Options struct {
	// Engine is the controller engine to forward to. Required.
	Engine Engine

	// Logger is optional; a nil Logger discards output.
	Logger Logger
}

// Manager is the handle through which every boundary operation runs.
//
// Thread Safety: all methods are safe for concurrent use.
type Manager struct {
	engine    Engine
	logger    Logger
	watchers  *watcherSet
	alive     atomic.Bool
	createdAt time.Time
}

var (
	liveMu  sync.Mutex
	liveMgr *Manager
)

// Create builds the process-wide Manager and attaches it to the engine's
// notification stream.
//
// Returns:
//   - *Manager: the live handle
//   - error: ErrEngineRequired, or ErrManagerExists while another Manager is live
func Create(opts Options) (*Manager, error) {
	if opts.Engine == nil {
		return nil, ErrEngineRequired
	}

	liveMu.Lock()
	defer liveMu.Unlock()

	if liveMgr != nil {
		return nil, ErrManagerExists
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	m := &Manager{
		engine:    opts.Engine,
		logger:    logger,
		watchers:  newWatcherSet(),
		createdAt: time.Now(),
	}
	m.alive.Store(true)
	opts.Engine.SetNotificationSink(m.dispatch)
	liveMgr = m

	m.logger.Info("z-wave manager created")
	return m, nil
}

// Get returns the live Manager, or ErrNoManager before Create and after Destroy.
func Get() (*Manager, error) {
	liveMu.Lock()
	defer liveMu.Unlock()

	if liveMgr == nil {
		return nil, ErrNoManager
	}
	return liveMgr, nil
}

// Destroy detaches every watcher, closes every subscription and closes the
// engine. After Destroy all accessors report failure. A second Destroy
// returns ErrNoManager.
func (m *Manager) Destroy() error {
	if !m.alive.CompareAndSwap(true, false) {
		return ErrNoManager
	}

	m.engine.SetNotificationSink(nil)
	for _, w := range m.watchers.close() {
		if sub, ok := w.(*Subscription); ok {
			sub.closeChannel()
		}
	}

	err := m.engine.Close()

	liveMu.Lock()
	if liveMgr == m {
		liveMgr = nil
	}
	liveMu.Unlock()

	m.logger.Info("z-wave manager destroyed", "uptime", time.Since(m.createdAt).Round(time.Second).String())
	return err
}

// IsLive reports whether the Manager has not been destroyed.
func (m *Manager) IsLive() bool {
	return m.alive.Load()
}

// AddWatcher registers w for every engine notification.
// It reports false if the Manager is not live, w is nil or not comparable,
// or w is already registered. A duplicate registration never causes a
// second delivery.
func (m *Manager) AddWatcher(w Watcher) bool {
	if !m.alive.Load() {
		return false
	}
	// Destroy may have closed the set since the check above.
	added := m.watchers.add(w)
	if added {
		m.logger.Debug("watcher added", "watchers", m.watchers.len())
	}
	return added
}

// RemoveWatcher unregisters w. It reports false if w was not registered.
// No delivery to w starts after RemoveWatcher returns.
func (m *Manager) RemoveWatcher(w Watcher) bool {
	removed := m.watchers.remove(w)
	if removed {
		m.logger.Debug("watcher removed", "watchers", m.watchers.len())
	}
	return removed
}

// HasWatcher reports whether w is registered.
func (m *Manager) HasWatcher(w Watcher) bool {
	return m.watchers.contains(w)
}

// WatcherCount returns the number of registered watchers.
func (m *Manager) WatcherCount() int {
	return m.watchers.len()
}

// dispatch is the engine's notification sink.
func (m *Manager) dispatch(n Notification) {
	if !m.alive.Load() {
		return
	}
	m.watchers.dispatch(n, m.logger)
}

// liveEngine returns the engine while the Manager is live.
func (m *Manager) liveEngine() (Engine, bool) {
	if m == nil || !m.alive.Load() {
		return nil, false
	}
	return m.engine, true
}
