package db

import "errors"

// Sentinel errors for store operations. Check with errors.Is().
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
)
