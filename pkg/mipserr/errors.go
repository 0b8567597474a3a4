// Package mipserr defines the typed error kinds raised across the
// indexing core, grounded on the teacher repo's fmt.Errorf("...: %w", ...)
// wrapping idiom (see pkg/ivf/index.go's Train/Add/Search) rather than
// introducing a new error-handling style.
package mipserr

import (
	"errors"
	"fmt"
)

// Sentinel kinds a caller can match with errors.Is.
var (
	// ErrMalformedInput marks a file/data violation: wrong size, dimension
	// mismatch between train/query/ground-truth, truncated binary records.
	ErrMalformedInput = errors.New("mipserr: malformed input")

	// ErrParameterDomain marks an out-of-domain constructor argument: L=0,
	// k=0, opened_trees=0, U outside (0,1), and similar.
	ErrParameterDomain = errors.New("mipserr: parameter out of domain")

	// ErrDimensionMismatch marks a query whose dimension disagrees with
	// the index it is searched against.
	ErrDimensionMismatch = errors.New("mipserr: dimension mismatch")
)

// MalformedInput wraps ErrMalformedInput with a formatted message naming
// the file and the violated invariant.
func MalformedInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

// ParameterDomain wraps ErrParameterDomain with a formatted message.
func ParameterDomain(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrParameterDomain, fmt.Sprintf(format, args...))
}

// DimensionMismatch wraps ErrDimensionMismatch with a formatted message.
func DimensionMismatch(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDimensionMismatch, fmt.Sprintf(format, args...))
}
