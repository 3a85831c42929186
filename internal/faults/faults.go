// Package faults defines the error taxonomy shared by the checkout flow.
//
// Errors raised anywhere in the payment path are classified into a Kind and
// Severity, and carry two messages: a user-facing message (safe to render in
// the checkout UI) and the technical message (diagnostic surfaces only).
// Components raise typed errors via the New*/Wrap* constructors; anything
// untyped is classified by keyword when it reaches the Handler.
package faults

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies the category of a fault.
type Kind string

const (
	KindNetwork    Kind = "NETWORK_ERROR"
	KindAPI        Kind = "API_ERROR"
	KindValidation Kind = "VALIDATION_ERROR"
	KindPayment    Kind = "PAYMENT_ERROR"
	KindAuth       Kind = "AUTH_ERROR"
	KindTimeout    Kind = "TIMEOUT_ERROR"
	KindUnknown    Kind = "UNKNOWN_ERROR"
)

// Severity indicates how serious a fault is for the current session.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Error is a typed fault raised by the checkout components.
type Error struct {
	kind    Kind
	message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *Error) Kind() Kind    { return e.kind }
func (e *Error) Unwrap() error { return e.wrapped }

// NewValidationError creates a validation error for invalid caller input.
// Validation errors are raised locally, never retried, and their message is
// shown to the user verbatim.
func NewValidationError(msg string) error {
	return &Error{kind: KindValidation, message: msg}
}

// NewPaymentError creates a payment error.
// Use this for cashier failures and business-level payment rejections.
func NewPaymentError(msg string) error {
	return &Error{kind: KindPayment, message: msg}
}

// WrapPaymentError wraps an existing error as a payment error.
func WrapPaymentError(err error, msg string) error {
	return &Error{kind: KindPayment, message: msg, wrapped: err}
}

// NewAPIError creates an API error.
// Use this for non-2xx HTTP responses and business-level failure statuses in
// otherwise well-formed backend responses.
func NewAPIError(msg string) error {
	return &Error{kind: KindAPI, message: msg}
}

// WrapAPIError wraps an existing error as an API error.
func WrapAPIError(err error, msg string) error {
	return &Error{kind: KindAPI, message: msg, wrapped: err}
}

// NewNetworkError creates a network error.
func NewNetworkError(msg string) error {
	return &Error{kind: KindNetwork, message: msg}
}

// WrapNetworkError wraps an existing error as a network error.
func WrapNetworkError(err error, msg string) error {
	return &Error{kind: KindNetwork, message: msg, wrapped: err}
}

// NewAuthError creates an authentication/authorization error.
// Use this for token failures and unsupported host environments (no payment
// bridge available).
func NewAuthError(msg string) error {
	return &Error{kind: KindAuth, message: msg}
}

// WrapAuthError wraps an existing error as an auth error.
func WrapAuthError(err error, msg string) error {
	return &Error{kind: KindAuth, message: msg, wrapped: err}
}

// NewTimeoutError creates a timeout error.
// Use this when a bridge callback or backend call exceeds its deadline.
func NewTimeoutError(msg string) error {
	return &Error{kind: KindTimeout, message: msg}
}

// WrapInternalError wraps an unexpected failure with an unknown kind.
func WrapInternalError(err error, msg string) error {
	return &Error{kind: KindUnknown, message: msg, wrapped: err}
}

// ClassifiedError is the result of passing a fault through the Handler.
type ClassifiedError struct {
	Context          string    `json:"context"`
	UserMessage      string    `json:"userMessage"`
	TechnicalMessage string    `json:"technicalMessage"`
	Kind             Kind      `json:"kind"`
	Severity         Severity  `json:"severity"`
	Timestamp        time.Time `json:"timestamp"`
}

// Classify determines the Kind of an arbitrary error.
//
// Typed errors report their own kind. Untyped errors are classified by keyword
// on the message, in priority order, so e.g. "invalid auth token" classifies
// as Network/Timeout/... before falling back to Unknown.
func Classify(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.kind
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "network"), strings.Contains(msg, "fetch"):
		return KindNetwork
	case strings.Contains(msg, "timeout"):
		return KindTimeout
	case strings.Contains(msg, "payment"), strings.Contains(msg, "cashier"):
		return KindPayment
	case strings.Contains(msg, "auth"), strings.Contains(msg, "token"):
		return KindAuth
	case strings.Contains(msg, "validation"), strings.Contains(msg, "invalid"):
		return KindValidation
	case strings.Contains(msg, "api"), strings.Contains(msg, "http"):
		return KindAPI
	default:
		return KindUnknown
	}
}

// SeverityFor maps a Kind to its severity.
func SeverityFor(kind Kind) Severity {
	switch kind {
	case KindPayment, KindNetwork:
		return SeverityHigh
	case KindAPI, KindTimeout:
		return SeverityMedium
	case KindValidation:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// user-facing messages per kind. Validation errors show their own message
// verbatim so the user can correct the input.
var userMessages = map[Kind]string{
	KindNetwork: "Unable to connect to the server. Please check your internet connection and try again.",
	KindPayment: "Payment processing failed. Please try again or contact support if the problem persists.",
	KindAPI:     "Service temporarily unavailable. Please try again in a moment.",
	KindAuth:    "Authentication failed. Please log in again.",
	KindTimeout: "Request timed out. Please try again.",
	KindUnknown: "An unexpected error occurred. Please try again.",
}

// UserMessage returns the message that may be shown to the end user for err.
func UserMessage(err error) string {
	kind := Classify(err)
	if kind == KindValidation {
		var typed *Error
		if errors.As(err, &typed) {
			return typed.message
		}
		return err.Error()
	}
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[KindUnknown]
}
