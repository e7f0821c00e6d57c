package db

import "errors"

var (
	// ErrDuplicate indicates a second result for a process id. The first
	// write is kept.
	ErrDuplicate = errors.New("db: duplicate process id")

	// ErrUnknownProcess indicates a process id outside [0, N).
	ErrUnknownProcess = errors.New("db: unknown process id")
)
