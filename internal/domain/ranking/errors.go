package ranking

import "errors"

// Sentinel errors for this package. These allow errors.Is/As from callers.
var (
	ErrNotFound     = errors.New("participant ranking not found")
	ErrInvalidQuery = errors.New("invalid ranking query")
	ErrDataAccess   = errors.New("ranking data access failed")
)
