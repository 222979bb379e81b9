package search

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownStrategy is returned when a request names a strategy that is
	// not defined in configuration.
	ErrUnknownStrategy = errors.New("unknown routing strategy")

	// ErrProviderNotFound is returned when a provider id is not registered.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderUnavailable indicates connection or handshake failure.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNoProvidersSelected is returned when routing produced an empty
	// provider list (nothing enabled matched the strategy).
	ErrNoProvidersSelected = errors.New("no providers selected")

	// ErrRequestTimeout is returned when the caller deadline elapsed before
	// any provider produced a result.
	ErrRequestTimeout = errors.New("request deadline exceeded before any results were collected")
)

// InvocationError is a structured per-provider failure entry. It is surfaced
// in the response's errors list for partial successes and carried by
// AllFailedError when everything failed.
type InvocationError struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

func (e InvocationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// AllFailedError is terminal for a request: every selected provider failed.
type AllFailedError struct {
	Attempts []InvocationError
}

func (e *AllFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("all providers failed: [%s]", strings.Join(parts, "; "))
}

// Providers returns the ids of every attempted provider, in attempt order.
func (e *AllFailedError) Providers() []string {
	ids := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		ids = append(ids, a.Provider)
	}
	return ids
}
