package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound       = errors.New("object not found")
	ErrInvalidValue   = errors.New("invalid value")
	ErrNotImplemented = errors.New("not implemented")
	ErrBackend        = errors.New("backend failure")
	ErrUnauthorized   = errors.New("authentication failed")
)

// DomainError wraps one of the sentinel errors with a caller-facing message.
//
//nolint:revive // Name is intentionally verbose to distinguish domain-layer errors
type DomainError struct {
	Err     error
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NotFoundf reports an absent object.
func NotFoundf(format string, args ...any) error {
	return &DomainError{Err: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidValuef reports a malformed or unsupported identifier or query value.
func InvalidValuef(format string, args ...any) error {
	return &DomainError{Err: ErrInvalidValue, Message: fmt.Sprintf(format, args...)}
}

// NotImplementedf reports a feature this deployment does not provide.
func NotImplementedf(format string, args ...any) error {
	return &DomainError{Err: ErrNotImplemented, Message: fmt.Sprintf(format, args...)}
}

// Backend wraps a storage or I/O failure.
func Backend(op string, err error) error {
	return &DomainError{Err: errors.Join(ErrBackend, err), Message: op + ": " + err.Error()}
}

// IsNotFound reports whether err marks an absent object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// RequestError is a request handling failure that carries its own HTTP status.
type RequestError struct {
	Status  int
	Message string
	Err     error
}

// NewRequestError builds a RequestError with the given status.
func NewRequestError(status int, message string) *RequestError {
	return &RequestError{Status: status, Message: message}
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the RFC 9083 §6 error body. Description is safe for clients;
// internal causes are logged, never copied here.
type ErrorResponse struct {
	Conformance []string `json:"rdapConformance"`
	ErrorCode   int      `json:"errorCode"`
	Title       string   `json:"title"`
	Description []string `json:"description,omitempty"`
}
