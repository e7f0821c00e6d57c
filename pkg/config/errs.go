package config

import "errors"

var (
	// ErrInvalid indicates a configuration that failed validation.
	ErrInvalid = errors.New("config: invalid")

	// ErrUnknownParam indicates a sweep key that maps to no combination field.
	ErrUnknownParam = errors.New("config: unknown sweep parameter")

	// ErrEmptySweep indicates a sweep without parameters or with an empty
	// value list.
	ErrEmptySweep = errors.New("config: empty sweep")
)
