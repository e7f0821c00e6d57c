package study

import "fmt"

// Code is the persisted form of a Status.
type Code int

const (
	CodeSuccess   Code = 0
	CodeEarlyExit Code = 1
	CodeError     Code = -1
)

// Kind tags a Status.
type Kind uint8

const (
	KindSuccess Kind = iota
	KindEarlyExit
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindEarlyExit:
		return "early_exit"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Status is the outcome of one combination. Detail is the early exit reason
// or the error text.
type Status struct {
	Kind   Kind   `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

func Success() Status { return Status{Kind: KindSuccess} }
func EarlyExit(reason string) Status { return Status{Kind: KindEarlyExit, Detail: reason} }
func Error(detail string) Status { return Status{Kind: KindError, Detail: detail} }

// Code translates the status for the status table.
func (s Status) Code() Code {
	switch s.Kind {
	case KindSuccess:
		return CodeSuccess
	case KindEarlyExit:
		return CodeEarlyExit
	default:
		return CodeError
	}
}

func (s Status) String() string {
	if s.Detail == "" {
		return s.Kind.String()
	}
	return s.Kind.String() + ": " + s.Detail
}
