package store

import "errors"

var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnknownDialect = errors.New("unknown database dialect")
)
