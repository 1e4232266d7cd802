package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrToolNotFound marks a missing external binary. Messages wrapped with it
	// must carry an install hint so the failure is user-actionable.
	ErrToolNotFound = errors.New("tool not found")
	// ErrToolFailure marks an external operation that ran and failed.
	ErrToolFailure = errors.New("tool failure")
	// ErrOutputMissing marks an operation that reported success without
	// producing an expected artifact.
	ErrOutputMissing = errors.New("output missing")
	// ErrIOFailure marks a failed storage commit, local or remote.
	ErrIOFailure = errors.New("io failure")
	// ErrFetchFailure marks a failed network fetch. Retryable.
	ErrFetchFailure = errors.New("fetch failure")
)

// Wrap builds an error message that includes runner context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrToolFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether an error should be retried by the fetch policy.
func Retryable(err error) bool {
	return errors.Is(err, ErrFetchFailure)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
