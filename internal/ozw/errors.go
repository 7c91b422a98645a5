package ozw

import "errors"

// Domain errors for the Z-Wave boundary.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrManagerExists is returned by Create while another Manager is live.
	ErrManagerExists = errors.New("ozw: manager already exists")

	// ErrNoManager is returned when no live Manager is available, either
	// before Create or after Destroy.
	ErrNoManager = errors.New("ozw: no live manager")

	// ErrEngineRequired is returned by Create when Options.Engine is nil.
	ErrEngineRequired = errors.New("ozw: engine is required")

	// ErrWrongType is returned when a value is accessed as a type other
	// than the identity's declared type.
	ErrWrongType = errors.New("ozw: value type mismatch")

	// ErrUnavailable is returned when an identity does not resolve to a
	// readable value.
	ErrUnavailable = errors.New("ozw: value not available")

	// ErrRejected is returned when the engine refuses a write (read-only,
	// out of range, unknown list item).
	ErrRejected = errors.New("ozw: value rejected")

	// ErrInvalidValueID is returned when a value identity string cannot be parsed.
	ErrInvalidValueID = errors.New("ozw: invalid value id")

	// ErrInvalidValue is returned when text cannot be parsed as a value of
	// the requested type.
	ErrInvalidValue = errors.New("ozw: invalid value")
)
