// Package ozw is the boundary between Gray Logic and a Z-Wave controller engine.
//
// The engine owns the protocol state machine, node discovery, healing,
// polling and driver transport. This package exposes that engine through a
// single Manager handle with three boundary mechanisms:
//
//   - Typed value access keyed by ValueID. Every scalar, string and
//     collection accessor checks the identity's declared type before
//     forwarding to the engine. Value returns the current reading as a
//     tagged variant so callers can switch on its concrete type instead of
//     guessing the accessor name.
//   - Creator functions. Variable-length results (strings, byte vectors,
//     int32 vectors, string vectors) are handed to a caller-supplied
//     creator exactly once on success and never on failure. The Manager
//     methods of the same name return owned Go values directly.
//   - Watchers and subscriptions. Engine events are pushed from engine
//     goroutines to every registered Watcher. Subscribe wraps a watcher
//     around a buffered channel.
//
// # Lifecycle
//
// At most one Manager is live per process:
//
//	m, err := ozw.Create(ozw.Options{Engine: engine, Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer m.Destroy()
//
// Create fails with ErrManagerExists while another Manager is live. Get
// returns the live Manager or ErrNoManager. After Destroy every accessor
// reports failure and no further notifications are delivered.
//
// # Watcher registration
//
// Watchers are keyed by identity (interface equality). Registering the
// same watcher twice is a no-op that reports false; it never produces a
// second delivery. Removing a watcher that is not registered reports false.
//
// # Thread Safety
//
// All Manager methods are safe for concurrent use. Watchers are invoked on
// the engine's notification goroutine and must not assume any particular
// calling goroutine.
package ozw
