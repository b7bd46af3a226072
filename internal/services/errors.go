package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks lookups for assets or jobs that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks admission attempts that collide with an active job.
	ErrConflict = errors.New("conflict")
	// ErrValidation marks requests rejected before any job record is created.
	ErrValidation = errors.New("validation error")
	// ErrInvalidState marks job transitions attempted from the wrong status.
	ErrInvalidState = errors.New("invalid state")
	// ErrSpawn marks encoder processes that could not be started.
	ErrSpawn = errors.New("spawn error")
	// ErrEncode marks encoder processes that ran and exited non-zero.
	ErrEncode = errors.New("encode error")
	// ErrTimeout marks encodes that exceeded the bounded execution ceiling.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = errors.New("service failure")
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Message extracts the human-readable portion of a wrapped error, stripping
// the sentinel prefix so job records carry the detail rather than the marker.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrInvalidState, ErrSpawn, ErrEncode, ErrTimeout} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
