// Package store holds the errors shared by the repository implementations.
package store

import "errors"

var (
	ErrNotFound          = errors.New("store: not found")
	ErrDuplicate         = errors.New("store: duplicate key")
	ErrInsufficientFunds = errors.New("store: insufficient funds")
	ErrOutOfRange        = errors.New("store: value out of range")
	// ErrStaleState means a conditional write matched no row because another
	// writer changed the record first.
	ErrStaleState = errors.New("store: stale state")
)
