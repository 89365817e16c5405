package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBackend is returned by Lookup when no provider is registered for a kind.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrNoIdentifierStrategy is returned when a provider is described without
	// any identifier strategy.
	ErrNoIdentifierStrategy = errors.New("provider must support at least one identifier strategy")

	// ErrOpenFailed wraps failures to open or reach a backend.
	ErrOpenFailed = errors.New("failed to open backend")
)

// UnknownBackendError reports a registry miss.
type UnknownBackendError struct {
	Kind Kind
	// Name is set instead of Kind when a backend name could not be parsed.
	Name string
}

func (e *UnknownBackendError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %q", ErrUnknownBackend, e.Name)
	}
	return fmt.Sprintf("%s: %s", ErrUnknownBackend, e.Kind)
}

// Is makes errors.Is(err, ErrUnknownBackend) hold for every UnknownBackendError.
func (e *UnknownBackendError) Is(target error) bool {
	return target == ErrUnknownBackend
}
