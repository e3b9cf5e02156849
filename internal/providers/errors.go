// Package providers holds what the upstream clients share: a normalized
// failure taxonomy and the HTTP status mapping onto it.
package providers

import (
	"errors"
	"fmt"
	"net/http"

	"courier/pkg/platform/sentinel"
)

// ErrorCategory is the normalized failure taxonomy.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	// ErrorCircuitOpen means the call was not attempted.
	ErrorCircuitOpen ErrorCategory = "circuit_open"
	ErrorInternal    ErrorCategory = "internal"
)

// ProviderError wraps an upstream failure with its category.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// Is makes not-found provider errors match sentinel.ErrNotFound and
// open-circuit errors match sentinel.ErrUnavailable.
func (e *ProviderError) Is(target error) bool {
	switch e.Category {
	case ErrorNotFound:
		return target == sentinel.ErrNotFound
	case ErrorCircuitOpen, ErrorProviderOutage:
		return target == sentinel.ErrUnavailable
	}
	return false
}

func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
	}
}

func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// CategoryFromStatus maps a non-2xx HTTP status to a category.
func CategoryFromStatus(status int) ErrorCategory {
	switch {
	case status == http.StatusNotFound:
		return ErrorNotFound
	case status == http.StatusUnauthorized:
		return ErrorAuthentication
	case status == http.StatusTooManyRequests:
		return ErrorRateLimited
	case status == http.StatusForbidden:
		// GitHub reports an exhausted rate limit as 403
		return ErrorRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return ErrorTimeout
	case status >= 500:
		return ErrorProviderOutage
	default:
		return ErrorBadData
	}
}

// CountsAgainstCircuit reports whether err indicates an unhealthy upstream.
// Not-found and bad-request answers come from a healthy upstream.
func CountsAgainstCircuit(err error) bool {
	switch GetCategory(err) {
	case ErrorNotFound, ErrorBadData:
		return false
	}
	return err != nil
}
