package simulator

import "errors"

// Simulator errors.
var (
	// ErrInvalidNetwork is returned when a network fixture fails validation.
	ErrInvalidNetwork = errors.New("simulator: invalid network")

	// ErrHomeOffline is returned when a home has no driver attached.
	ErrHomeOffline = errors.New("simulator: home is offline")

	// ErrUnknownNode is returned when a node is not part of a home.
	ErrUnknownNode = errors.New("simulator: unknown node")

	// ErrUnknownValue is returned when a value identity does not resolve.
	ErrUnknownValue = errors.New("simulator: unknown value")

	// ErrNoPendingCommand is returned when inclusion or exclusion is
	// completed without AddNode or RemoveNode having been started.
	ErrNoPendingCommand = errors.New("simulator: no controller command in progress")

	// ErrNetworkFull is returned when no node id is free for inclusion.
	ErrNetworkFull = errors.New("simulator: no free node id")
)
