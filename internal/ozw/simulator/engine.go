package simulator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-zwave/internal/ozw"
)

// DefaultPollInterval is the time for one complete poll pass.
const DefaultPollInterval = 30 * time.Second

// Options configures New.
type Options struct {
	// Network is the fixture describing every controller. Required.
	Network *Network

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// PollBetweenEach makes PollInterval the gap between individual polls
	// instead of the length of a complete pass.
	PollBetweenEach bool

	// Logger is optional; a nil Logger discards output.
	Logger ozw.Logger
}

// Engine is an in-process ozw.Engine backed by a network fixture.
//
// It runs two goroutines: a notification worker that delivers events to
// the installed sink in emission order, and a poller that refreshes polled
// values. Both stop on Close. The sink may close the engine, directly or by
// destroying its Manager.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	logger   ozw.Logger
	fixtures map[string]HomeFixture

	mu           sync.Mutex
	homes        map[uint32]*home
	paths        map[string]uint32
	pollInterval time.Duration
	betweenPolls bool

	sinkMu sync.RWMutex
	sink   func(ozw.Notification)

	queue      *queue
	delivering atomic.Bool
	delivered  chan struct{}

	pollWake  chan struct{}
	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Compile-time check that Engine satisfies the boundary contract.
var _ ozw.Engine = (*Engine)(nil)

// New creates an engine with every home offline and starts its goroutines.
//
// Returns:
//   - *Engine: The running engine
//   - error: ErrInvalidNetwork if the fixture is missing or invalid
func New(opts Options) (*Engine, error) {
	if opts.Network == nil {
		return nil, ErrInvalidNetwork
	}
	if err := opts.Network.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		logger:       logger,
		fixtures:     make(map[string]HomeFixture, len(opts.Network.Homes)),
		homes:        make(map[uint32]*home),
		paths:        make(map[string]uint32),
		pollInterval: interval,
		betweenPolls: opts.PollBetweenEach,
		queue:        newQueue(),
		delivered:    make(chan struct{}),
		pollWake:     make(chan struct{}, 1),
		ctx:          ctx,
		ctxCancel:    cancel,
	}
	for _, h := range opts.Network.Homes {
		e.fixtures[h.Path] = h
	}

	e.wg.Add(1)
	go e.deliverLoop()
	go e.pollLoop()

	return e, nil
}

// SetNotificationSink implements ozw.Engine.
func (e *Engine) SetNotificationSink(sink func(ozw.Notification)) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	e.sink = sink
}

// Close stops the engine's goroutines and takes every home offline.
// Notifications still queued are discarded.
//
// Called while a notification is being delivered, Close does not wait for
// the notification worker; it exits once the sink returns.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.ctxCancel()
		e.wg.Wait()
		if !e.delivering.Load() {
			<-e.delivered
		}

		e.mu.Lock()
		e.homes = make(map[uint32]*home)
		e.paths = make(map[string]uint32)
		e.mu.Unlock()

		e.logger.Info("simulator engine closed")
	})
	return nil
}

// emit queues a notification for delivery. Callers hold e.mu.
func (e *Engine) emit(n ozw.Notification) {
	if h, ok := e.homes[n.HomeID]; ok {
		h.stats.notifications++
	}
	e.queue.push(n)
}

// deliverLoop hands queued notifications to the sink, outside every engine
// lock, so sinks may call back into the engine.
func (e *Engine) deliverLoop() {
	defer close(e.delivered)

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.queue.ready():
		}

		for {
			n, ok := e.queue.pop()
			if !ok {
				break
			}
			// Raised before the cancellation check; Close depends on the order.
			e.delivering.Store(true)
			if e.ctx.Err() != nil {
				e.delivering.Store(false)
				return
			}
			e.sinkMu.RLock()
			sink := e.sink
			e.sinkMu.RUnlock()
			if sink != nil {
				sink(n)
			}
			e.delivering.Store(false)
			e.queue.done(n.HomeID)
		}
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
