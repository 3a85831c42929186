package signature

import "fmt"

// ErrorCode classifies failures from the signature package.
type ErrorCode string

const (
	// ErrCodeKeyManagement is used when key material cannot be loaded or parsed
	// (missing file, bad PEM/JWK, wrong key type).
	ErrCodeKeyManagement ErrorCode = "key_management"

	// ErrCodeSigning is used when the crypto primitive itself fails.
	// There is no unsigned-request fallback: callers must treat this as fatal
	// for the current payment attempt.
	ErrCodeSigning ErrorCode = "signing"

	// ErrCodeValidation is used for bad input to the engine (empty method,
	// unparseable URL, missing prepayId).
	ErrCodeValidation ErrorCode = "validation"
)

// SignatureError is a structured error from the signature package.
type SignatureError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *SignatureError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *SignatureError) Code() ErrorCode { return e.code }
func (e *SignatureError) Unwrap() error   { return e.wrapped }

// NewKeyManagementError creates a key management error.
func NewKeyManagementError(msg string) error {
	return &SignatureError{code: ErrCodeKeyManagement, message: msg}
}

// WrapKeyManagementError wraps an existing error as a key management error.
func WrapKeyManagementError(err error, msg string) error {
	return &SignatureError{code: ErrCodeKeyManagement, message: msg, wrapped: err}
}

// NewSigningError creates a signing error.
func NewSigningError(msg string) error {
	return &SignatureError{code: ErrCodeSigning, message: msg}
}

// WrapSigningError wraps an existing error as a signing error.
func WrapSigningError(err error, msg string) error {
	return &SignatureError{code: ErrCodeSigning, message: msg, wrapped: err}
}

// NewValidationError creates a validation error for bad engine input.
func NewValidationError(msg string) error {
	return &SignatureError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
func WrapValidationError(err error, msg string) error {
	return &SignatureError{code: ErrCodeValidation, message: msg, wrapped: err}
}
