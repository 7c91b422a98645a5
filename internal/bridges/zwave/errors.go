package zwave

import "errors"

// Domain errors for the Z-Wave bridge package.
var (
	// ErrInvalidAddress is returned when a node address or home id cannot
	// be parsed.
	ErrInvalidAddress = errors.New("zwave: invalid address")

	// ErrUnknownNode is returned when a command or request names a node the
	// bridge has not seen.
	ErrUnknownNode = errors.New("zwave: unknown node")

	// ErrUnknownHome is returned when a request names no home and the
	// bridge cannot pick one.
	ErrUnknownHome = errors.New("zwave: unknown home")

	// ErrNotStarted is returned by operations that need a running bridge.
	ErrNotStarted = errors.New("zwave: bridge not started")
)
