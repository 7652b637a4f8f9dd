package window

import "errors"

var (
	// ErrStoreUnavailable indicates the backing store could not be reached.
	ErrStoreUnavailable = errors.New("window store unavailable")
	// ErrInvalidLimit indicates a limit with a non-positive window or max.
	ErrInvalidLimit = errors.New("invalid window limit")
)
