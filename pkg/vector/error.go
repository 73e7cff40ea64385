package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable is returned when the backend cannot be reached or timed out.
	ErrUnreachable = errors.New("vector backend unreachable")

	// ErrRejected is returned when the backend refused a write, e.g. a dimension mismatch.
	ErrRejected = errors.New("vector backend rejected request")

	// ErrQuery is returned when the backend failed to execute a query.
	ErrQuery = errors.New("vector backend query failed")

	// ErrConfig is returned when the driver or collection is misconfigured.
	ErrConfig = errors.New("vector backend misconfigured")
)

// Wrap annotates err with one of the sentinel errors above.
func Wrap(sentinel error, op string, err error) error {
	return fmt.Errorf("%w: %s: %v", sentinel, op, err)
}
