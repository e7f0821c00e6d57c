package executor

import "errors"

var (
	// ErrBadSweep indicates a sweep value that does not decode into its
	// combination field.
	ErrBadSweep = errors.New("executor: bad sweep value")

	// ErrWorkerTimeout indicates a worker killed after its time limit.
	ErrWorkerTimeout = errors.New("executor: worker timeout")

	// ErrWorkerFailed indicates a worker that exited without a usable result.
	ErrWorkerFailed = errors.New("executor: worker failed")

	// ErrPIDMismatch indicates a worker reporting another process id than
	// the one it was given.
	ErrPIDMismatch = errors.New("executor: result for another process id")
)
