package carrot

import "errors"

// Error taxonomy for the library. Structural violations and configuration
// errors are fatal to the call that raised them; infeasible mutations and
// selections are not errors at all, they surface as a false "possible" result
// so batch loops keep running.
var (
	// ErrInvalidArgument indicates a constructor or option value that is out
	// of range, e.g. a non-positive input/output size.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicateConnection indicates an attempt to create a second ordinary
	// connection for the same ordered (from, to) pair.
	ErrDuplicateConnection = errors.New("duplicate connection")

	// ErrConnectionNotFound indicates a disconnect or ungate on a connection
	// that does not exist in the network.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrNodeNotFound indicates an operation referencing a node that is not
	// part of the network.
	ErrNodeNotFound = errors.New("node not part of network")

	// ErrNotGated indicates an ungate on a connection with no gater.
	ErrNotGated = errors.New("connection is not gated")

	// ErrSizeMismatch indicates mismatched input/output sizes between a
	// dataset and a network, or between two networks in crossover/merge.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrInvalidCallback indicates a filter/adjust callback that returned an
	// invalid result (a nil genome).
	ErrInvalidCallback = errors.New("invalid callback result")
)
