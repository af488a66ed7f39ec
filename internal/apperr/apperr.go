// Package apperr defines the typed error kinds every service returns and the
// JSON envelope handlers serialize them into. All errors surfaced to clients
// go through this package so internal details (stack traces, DB errors) are
// never leaked.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error for HTTP mapping and retry policy.
type Kind int

const (
	// KindValidation: malformed or out-of-range input. Caller-fixable, never retried.
	KindValidation Kind = iota
	// KindConflict: violates a uniqueness or business invariant (duplicate open
	// shift, stock would go negative).
	KindConflict
	// KindNotFound: referenced entity absent.
	KindNotFound
	// KindState: operation invalid for the entity's current lifecycle state.
	KindState
	// KindCertificate: fiscal certificate missing/expired. Fatal, never auto-retried.
	KindCertificate
	// KindExternal: downstream service (SEFAZ) failed. The only kind workers
	// retry automatically, reusing already-allocated resources.
	KindExternal
)

// Error is the canonical application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the error warrants automatic retry.
func (e *Error) Retryable() bool { return e.Kind == KindExternal }

func Validation(msg string) *Error  { return &Error{Kind: KindValidation, Message: msg} }
func Conflict(msg string) *Error    { return &Error{Kind: KindConflict, Message: msg} }
func NotFound(msg string) *Error    { return &Error{Kind: KindNotFound, Message: msg} }
func State(msg string) *Error       { return &Error{Kind: KindState, Message: msg} }
func Certificate(msg string) *Error { return &Error{Kind: KindCertificate, Message: msg} }

// External wraps a downstream failure so the cause survives for logging.
func External(msg string, err error) *Error {
	return &Error{Kind: KindExternal, Message: msg, Err: err}
}

// KindOf extracts the Kind from any error chain. Unclassified errors map to
// KindExternal so they surface as 502 rather than leaking as 500 internals.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindExternal, false
}

// Is lets errors.Is match by kind sentinel (see Kind* sentinels in tests).
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps an error kind to its wire status code.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindState:
		return http.StatusUnprocessableEntity
	case KindCertificate:
		return http.StatusUnprocessableEntity
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationFields wraps multiple field errors from DTO binding.
type ValidationFields struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidationFields(fields map[string]string) *ValidationFields {
	return &ValidationFields{Detail: "Erro de validação", Fields: fields}
}
