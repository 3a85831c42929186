package bridge

import "fmt"

// ErrorCode classifies failures from the bridge package.
type ErrorCode string

const (
	// ErrCodeNoBridge is used when no payment-capable bridge exists in the
	// host environment.
	ErrCodeNoBridge ErrorCode = "bridge_not_found"

	// ErrCodeMethodNotFound is used when the resolved bridge object does not
	// expose the requested method. This fails immediately - it is never
	// reported as a timeout.
	ErrCodeMethodNotFound ErrorCode = "method_not_found"

	// ErrCodeTimeout is used when a callback-style invocation receives no
	// response from the native side within the configured timeout.
	ErrCodeTimeout ErrorCode = "timeout"

	// ErrCodeTransport is used when posting to the native side fails or the
	// bridge surface disappeared between scan and invocation.
	ErrCodeTransport ErrorCode = "transport"
)

// BridgeError is a structured error from the bridge package.
type BridgeError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *BridgeError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *BridgeError) Code() ErrorCode { return e.code }
func (e *BridgeError) Unwrap() error   { return e.wrapped }

// NewNoBridgeError creates an error for a host environment with no
// payment-capable bridge.
func NewNoBridgeError(msg string) error {
	return &BridgeError{code: ErrCodeNoBridge, message: msg}
}

// NewMethodNotFoundError creates an error for a method missing on a bridge.
func NewMethodNotFoundError(msg string) error {
	return &BridgeError{code: ErrCodeMethodNotFound, message: msg}
}

// NewTimeoutError creates an error for a bridge callback that never fired.
func NewTimeoutError(msg string) error {
	return &BridgeError{code: ErrCodeTimeout, message: msg}
}

// NewTransportError creates an error for a failed dispatch to the native side.
func NewTransportError(msg string) error {
	return &BridgeError{code: ErrCodeTransport, message: msg}
}

// WrapTransportError wraps an existing error as a transport error.
func WrapTransportError(err error, msg string) error {
	return &BridgeError{code: ErrCodeTransport, message: msg, wrapped: err}
}
