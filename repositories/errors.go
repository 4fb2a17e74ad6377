package repositories

import "errors"

// ErrNotFound is returned when a lookup matches no row, including rows hidden by an ownership filter.
var ErrNotFound = errors.New("record not found")
