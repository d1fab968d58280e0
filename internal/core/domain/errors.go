package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPlanning marks a failed language-model planning call. It is always
	// recovered locally by the heuristic planner and never reaches callers.
	ErrPlanning = errors.New("planning failure")

	// ErrRetrievalUnavailable marks an embedding or vector-index outage,
	// as opposed to a successful query with zero matches. It triggers the
	// router's fallback chain.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
