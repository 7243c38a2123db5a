package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrNotAssigned       = errors.New("jury not assigned to section")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
