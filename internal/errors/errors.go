package errors

import (
	"errors"
	"fmt"
	"time"
)

// Base error types
var (
	ErrTimeout          = errors.New("upstream timeout")
	ErrConnectionFailed = errors.New("connection failed")
	ErrBadResponse      = errors.New("bad response")
	ErrUnauthorized     = errors.New("unauthorized")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeDecode     ErrorType = "decode"
	ErrorTypeAuth       ErrorType = "auth"
)

// GatewayError is a structured error for monitoring-backend operations.
// A timeout is deliberately a distinct type from a connection failure so
// callers can tell a slow backend from a dead one.
type GatewayError struct {
	Type       ErrorType
	Op         string // operation that failed (e.g. "sensors", "channels")
	Tenant     string // tenant probe if applicable
	Err        error
	StatusCode int // HTTP status code if applicable
	Timestamp  time.Time
}

func (e *GatewayError) Error() string {
	if e.Tenant != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Tenant, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *GatewayError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrTimeout:
		return e.Type == ErrorTypeTimeout
	case ErrConnectionFailed:
		return e.Type == ErrorTypeConnection
	case ErrBadResponse:
		return e.Type == ErrorTypeDecode
	case ErrUnauthorized:
		return e.Type == ErrorTypeAuth
	}

	return errors.Is(e.Err, target)
}

// NewGatewayError creates a new GatewayError
func NewGatewayError(errorType ErrorType, op, tenant string, err error) *GatewayError {
	return &GatewayError{
		Type:      errorType,
		Op:        op,
		Tenant:    tenant,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithStatusCode adds the HTTP status code to the error
func (e *GatewayError) WithStatusCode(code int) *GatewayError {
	e.StatusCode = code
	return e
}

// WrapTimeout wraps an upstream timeout with context
func WrapTimeout(op, tenant string, err error) error {
	return NewGatewayError(ErrorTypeTimeout, op, tenant, err)
}

// WrapConnection wraps a connection error with context
func WrapConnection(op, tenant string, err error) error {
	return NewGatewayError(ErrorTypeConnection, op, tenant, err)
}

// WrapAPI wraps an upstream HTTP error with context
func WrapAPI(op, tenant string, err error, statusCode int) error {
	return NewGatewayError(ErrorTypeAPI, op, tenant, err).WithStatusCode(statusCode)
}

// WrapDecode wraps a malformed-payload error with context
func WrapDecode(op, tenant string, err error) error {
	return NewGatewayError(ErrorTypeDecode, op, tenant, err)
}

// IsTimeout reports whether err is an upstream timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
