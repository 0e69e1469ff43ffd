package lumen

import (
	"errors"
	"fmt"

	"github.com/coder/websocket"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// Server-signaled errors (close codes or error frames)
	ErrorAuthFailed
	ErrorForbidden
	ErrorEndpointGone
	ErrorBadFrame
	ErrorRateLimited
	ErrorInternalServer

	// Client-side errors
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorLivenessTimeout
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorSerialization
	ErrorSuperseded
	ErrorThrottled
	ErrorReconnectExhausted
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorAuthFailed:
		return "auth_failed"
	case ErrorForbidden:
		return "forbidden"
	case ErrorEndpointGone:
		return "endpoint_gone"
	case ErrorBadFrame:
		return "bad_frame"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorInternalServer:
		return "internal_error"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorTimeout:
		return "timeout"
	case ErrorLivenessTimeout:
		return "liveness_timeout"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorSuperseded:
		return "superseded"
	case ErrorThrottled:
		return "throttled"
	case ErrorReconnectExhausted:
		return "reconnect_exhausted"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// Close codes with defined meaning to the connection manager.
const (
	CloseNormal          = websocket.StatusNormalClosure // 1000
	CloseGoingAway       = websocket.StatusGoingAway     // 1001
	CloseLivenessTimeout = websocket.StatusCode(4000)
	CloseAuthFailed      = websocket.StatusCode(4001)
	CloseForbidden       = websocket.StatusCode(4003)
)

// reconnectSuppressed reports whether a close code forbids automatic
// reconnection. Everything else is treated as unclean.
func reconnectSuppressed(code websocket.StatusCode) bool {
	switch code {
	case CloseNormal, CloseGoingAway, CloseAuthFailed, CloseForbidden:
		return true
	default:
		return false
	}
}

// FromCloseCode maps a transport close code to an ErrorCode.
func FromCloseCode(code websocket.StatusCode) ErrorCode {
	switch code {
	case CloseNormal, CloseGoingAway:
		return ErrorDisconnected
	case CloseAuthFailed:
		return ErrorAuthFailed
	case CloseForbidden:
		return ErrorForbidden
	case CloseLivenessTimeout:
		return ErrorLivenessTimeout
	default:
		return ErrorConnection
	}
}

// LumenError is a structured error with code and context.
type LumenError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *LumenError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *LumenError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is support for code comparison.
func (e *LumenError) Is(target error) bool {
	t, ok := target.(*LumenError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new LumenError with the given code and message.
func NewError(code ErrorCode, message string) *LumenError {
	return &LumenError{Code: code, Message: message}
}

// WrapError wraps an existing error with a LumenError.
func WrapError(code ErrorCode, message string, err error) *LumenError {
	return &LumenError{Code: code, Message: message, Wrapped: err}
}

// IsConnectionError checks if an error is connection-related.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var le *LumenError
	if !errors.As(err, &le) {
		return false
	}
	switch le.Code {
	case ErrorConnection, ErrorDisconnected, ErrorTimeout, ErrorLivenessTimeout:
		return true
	default:
		return false
	}
}

// IsAuthError checks if an error means the credentials were rejected.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var le *LumenError
	if !errors.As(err, &le) {
		return false
	}
	return le.Code == ErrorAuthFailed || le.Code == ErrorForbidden
}
