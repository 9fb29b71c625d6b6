package recommend

import "errors"

var (
	// ErrNotReady is returned when a recommendation is requested before the
	// engine is ready or after shutdown.
	ErrNotReady = errors.New("engine not ready")
	// ErrInFlight is returned when a request arrives while an inference is
	// already outstanding. Requests are rejected, never queued.
	ErrInFlight = errors.New("inference already in flight")
	// ErrCancelled is returned when an in-flight inference was cancelled.
	ErrCancelled = errors.New("inference cancelled")
)
