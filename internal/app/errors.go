package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound       = errors.New("not found")
	ErrEmptyInput     = errors.New("empty input")
	ErrCorruptStorage = errors.New("corrupt storage")
	ErrStorageIO      = errors.New("storage io")
)
