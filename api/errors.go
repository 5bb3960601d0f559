package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the registry has no record for the requested id.
	ErrNotFound = errors.New("researcher not found")

	// ErrUpstreamTimeout indicates an upstream call exceeded its budget. The
	// component that owns the timeout converts this into degraded data; it
	// only reaches a caller when the failed call was required.
	ErrUpstreamTimeout = errors.New("upstream request timed out")
)

// UpstreamError is a non-2xx response from the registry or a bibliometric
// source.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
