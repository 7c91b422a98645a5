package history

import "errors"

// History errors.
var (
	// ErrInvalidValueID is returned when a value identity has no home or node.
	ErrInvalidValueID = errors.New("history: value id requires home and node")

	// ErrNilValue is returned when RecordValue is given no value.
	ErrNilValue = errors.New("history: value is required")

	// ErrNodeNotFound is returned when a node has no inventory row.
	ErrNodeNotFound = errors.New("history: node not found")

	// ErrUnknownValueType is returned when a stored variant carries a type
	// this build does not know.
	ErrUnknownValueType = errors.New("history: unknown value type")
)
