package engine

import (
	"errors"
	"fmt"

	"github.com/vidsmith/vidsmith/internal/provider"
)

var (
	// ErrNoProviderConfigured means auto-selection found no provider with a
	// credential and simulation mode is off.
	ErrNoProviderConfigured = errors.New("no provider configured")

	// ErrPollTimeout means the poll attempt budget was exhausted before the
	// provider reported a terminal status.
	ErrPollTimeout = errors.New("generation timed out")

	// ErrMalformedResponse means the provider declared success but no media
	// URL could be extracted.
	ErrMalformedResponse = errors.New("provider reported success without a media url")
)

// ValidationError reports a bad request shape; the caller can correct the
// input and retry. No side effects have occurred.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// NotConfiguredError means an explicitly chosen provider has no credential
// and simulation mode is off.
type NotConfiguredError struct {
	Provider string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("provider %s is not configured", e.Provider)
}

// UserMessage maps a generation error to the single human-readable
// notification shown to the user. Raw detail stays in the logs.
func UserMessage(err error) string {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return validation.Error()
	}
	var notConfigured *NotConfiguredError
	if errors.As(err, &notConfigured) {
		return fmt.Sprintf("Provider %s is not configured. Add a credential or enable simulation mode.", notConfigured.Provider)
	}
	if errors.Is(err, ErrNoProviderConfigured) {
		return "No provider is configured. Add a credential or enable simulation mode."
	}
	if errors.Is(err, ErrPollTimeout) {
		return "Generation took too long. Try a shorter duration."
	}
	if errors.Is(err, ErrMalformedResponse) {
		return "The provider returned an unusable result. Try again."
	}
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		switch provErr.StatusCode {
		case 401, 403:
			return "Authentication failed. Check your API credential."
		case 429:
			return "Provider rate limit exceeded. Wait a moment and retry."
		case 500, 502, 503:
			return "The provider had an internal error. Try again later."
		}
		return "Video generation failed."
	}
	return "Video generation failed."
}
