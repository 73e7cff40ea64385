package record

import (
	"errors"
	"strings"
)

var (
	// ErrStoreUnreachable is returned when the backing database cannot serve a request.
	ErrStoreUnreachable = errors.New("record store unreachable")

	// ErrNotFoundOrUnauthorized is matched by NotFoundError.
	ErrNotFoundOrUnauthorized = errors.New("record not found or unauthorized")

	// ErrValidation is matched by ValidationError.
	ErrValidation = errors.New("validation failed")
)

// NotFoundError is returned when a record doesn't exist, or exists but belongs
// to another owner. Callers cannot tell the two cases apart.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return ErrNotFoundOrUnauthorized.Error()
	}

	return ErrNotFoundOrUnauthorized.Error() + ": " + e.ID
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFoundOrUnauthorized
}

// ValidationError describes caller input that was rejected before anything was persisted.
type ValidationError struct {
	Problems []string
}

func (e ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrValidation.Error()
	}

	return ErrValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}
