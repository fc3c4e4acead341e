package orgtrace

import (
	"errors"

	"github.com/kasw/orgtrace/internal/store"
)

// Error kinds. Internal packages wrap these; errors.Is classification
// survives the service layers.
var (
	// ErrNotFound is returned when a referenced person or organization
	// id is unknown to the store.
	ErrNotFound = store.ErrNotFound

	// ErrInvalidArgument is returned for malformed input (bad date
	// strings, non-positive depths) before any store work is attempted.
	ErrInvalidArgument = store.ErrInvalidArgument

	// ErrStoreUnavailable is returned when the store is unreachable or
	// the connection pool is exhausted, after the single retry.
	ErrStoreUnavailable = store.ErrUnavailable
)

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidArgument returns true if err is or wraps ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsStoreUnavailable returns true if err is or wraps ErrStoreUnavailable.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
