package librarian

import (
	"errors"
	"fmt"
)

// ErrIncomplete indicates that the librarian stopped before receiving every
// expected result.
var ErrIncomplete = errors.New("librarian: incomplete run")

// Missing lists the process ids without a stored result.
type Missing struct {
	// NotStarted were never launched.
	NotStarted []int `json:"not_started" yaml:"not_started"`
	// NotFinished were launched but never reported.
	NotFinished []int `json:"not_finished" yaml:"not_finished"`
}

func (m Missing) Len() int { return len(m.NotStarted) + len(m.NotFinished) }

// IncompleteError is returned with ErrIncomplete.
type IncompleteError struct {
	Received int
	Expected int
	Cause    string
	Missing  Missing
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: %s after %d/%d results (%d never started, %d never finished)",
		ErrIncomplete, e.Cause, e.Received, e.Expected, len(e.Missing.NotStarted), len(e.Missing.NotFinished))
}

func (e *IncompleteError) Unwrap() error { return ErrIncomplete }
