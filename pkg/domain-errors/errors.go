// Package domainerrors carries the error taxonomy shared by services and the
// HTTP layer. Services return coded errors; the transport maps codes to status
// codes and decides how much of the message reaches the caller.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Code classifies a failure independently of transport.
type Code string

const (
	CodeValidation          Code = "validation"
	CodeBadRequest          Code = "bad_request"
	CodeInvalidInput        Code = "invalid_input"
	CodeConflict            Code = "conflict"
	CodeUnauthorized        Code = "unauthorized"
	CodeNotFound            Code = "not_found"
	CodeMethodNotAllowed    Code = "method_not_allowed"
	CodeUpstreamUnavailable Code = "upstream_unavailable"
	CodeTimeout             Code = "timeout"
	CodeInternal            Code = "internal"
)

// Error is a coded domain error. Fields holds per-field reasons for
// validation and conflict failures.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// Validation builds a field-scoped validation error. The message names every
// failing field in sorted order.
func Validation(fields map[string]string) error {
	return &Error{Code: CodeValidation, Message: ValidationMessage(fields), Fields: fields}
}

// Conflict builds a field-scoped conflict, e.g. a duplicate identity.
func Conflict(field, reason string) error {
	return &Error{
		Code:    CodeConflict,
		Message: ValidationMessage(map[string]string{field: reason}),
		Fields:  map[string]string{field: reason},
	}
}

// ValidationMessage renders the human readable summary for failing fields.
func ValidationMessage(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, `"`+name+`"`)
	}
	sort.Strings(names)
	return fmt.Sprintf("Validation error(s) with parameters %s appeared.", strings.Join(names, ", "))
}

// As extracts the domain error from a chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether any domain error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput, CodeConflict:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeUpstreamUnavailable:
		return http.StatusBadGateway
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsClientFacing reports whether the error message is safe to echo to callers.
func IsClientFacing(code Code) bool {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput, CodeConflict,
		CodeUnauthorized, CodeNotFound, CodeMethodNotAllowed:
		return true
	}
	return false
}
