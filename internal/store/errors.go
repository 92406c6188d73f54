package store

import "errors"

// Sentinel errors returned by the store. Handlers map these onto HTTP
// statuses; callers wrap them with context via %w.
var (
	// ErrNotFound is returned when a referenced machine, order, part or
	// log row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on duplicate identifiers, e.g. creating an
	// order whose number already exists.
	ErrConflict = errors.New("already exists")

	// ErrValidation is returned when required correlation fields are
	// missing; nothing is written in that case.
	ErrValidation = errors.New("validation failed")

	// ErrPolicy is returned when an operation is well-formed but not
	// permitted in the machine's current mode or the order's current
	// lifecycle state.
	ErrPolicy = errors.New("policy violation")

	// ErrStaleHeartbeat is returned when a heartbeat older than the
	// machine's last applied one is delivered; none of its fields are
	// applied and no status log row is written.
	ErrStaleHeartbeat = errors.New("stale heartbeat")
)
