// Package domain contains the core business entities and interfaces for the payment service.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies every failure the service can surface.
type ErrorKind int

const (
	KindUnknownHTTP ErrorKind = iota
	KindConfiguration
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindProviderServer
	KindTimeout
	KindConnectivity
	KindMalformedResponse
)

// Domain errors, one per kind. Use errors.Is against these.
var (
	// ErrConfiguration is returned when credentials or settings are missing at construction.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation is returned when input is rejected locally or by the provider (400).
	ErrValidation = errors.New("validation error")

	// ErrAuthentication is returned when the provider rejects the credentials (401).
	ErrAuthentication = errors.New("authentication error")

	// ErrAuthorization is returned when the credentials lack permission (403).
	ErrAuthorization = errors.New("authorization error")

	// ErrNotFound is returned when the provider does not know the resource (404).
	ErrNotFound = errors.New("not found")

	// ErrProviderServer is returned for 5xx responses.
	ErrProviderServer = errors.New("provider server error")

	// ErrTimeout is returned when the call budget expires or the call is cancelled.
	ErrTimeout = errors.New("timeout")

	// ErrConnectivity is returned when the provider cannot be reached at all.
	ErrConnectivity = errors.New("connectivity error")

	// ErrMalformedResponse is returned when the body is not parseable as expected.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrUnknownHTTP is returned for any status no other kind covers.
	ErrUnknownHTTP = errors.New("unknown http error")
)

var kindSentinels = map[ErrorKind]error{
	KindConfiguration:     ErrConfiguration,
	KindValidation:        ErrValidation,
	KindAuthentication:    ErrAuthentication,
	KindAuthorization:     ErrAuthorization,
	KindNotFound:          ErrNotFound,
	KindProviderServer:    ErrProviderServer,
	KindTimeout:           ErrTimeout,
	KindConnectivity:      ErrConnectivity,
	KindMalformedResponse: ErrMalformedResponse,
	KindUnknownHTTP:       ErrUnknownHTTP,
}

var kindCodes = map[ErrorKind]string{
	KindConfiguration:     "CONFIGURATION_ERROR",
	KindValidation:        "VALIDATION_ERROR",
	KindAuthentication:    "AUTHENTICATION_ERROR",
	KindAuthorization:     "AUTHORIZATION_ERROR",
	KindNotFound:          "NOT_FOUND",
	KindProviderServer:    "PROVIDER_SERVER_ERROR",
	KindTimeout:           "TIMEOUT",
	KindConnectivity:      "CONNECTIVITY_ERROR",
	KindMalformedResponse: "MALFORMED_RESPONSE",
	KindUnknownHTTP:       "UNKNOWN_HTTP_ERROR",
}

// Sentinel returns the package-level error matching the kind.
func (k ErrorKind) Sentinel() error {
	if err, ok := kindSentinels[k]; ok {
		return err
	}
	return ErrUnknownHTTP
}

// Code returns the stable machine-readable code for the kind.
func (k ErrorKind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[KindUnknownHTTP]
}

func (k ErrorKind) String() string {
	return k.Sentinel().Error()
}

// FieldError is a single field-level validation detail.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PaymentError is the only error shape the facade returns to callers.
// Transport-level failures are kept in Cause for diagnostics.
type PaymentError struct {
	Kind    ErrorKind
	Message string
	Status  int          // HTTP status, 0 when no response was received
	Body    string       // raw response text for malformed or unknown responses
	Details []FieldError // provider or local field-level errors
	Cause   error
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for i, d := range e.Details {
		if i == 0 {
			b.WriteString(" - ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", d.Field, d.Message)
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the nested cause.
func (e *PaymentError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind.Sentinel(), e.Cause}
	}
	return []error{e.Kind.Sentinel()}
}

// Code returns the machine-readable code for the error kind.
func (e *PaymentError) Code() string {
	return e.Kind.Code()
}

// NewPaymentError creates a new PaymentError of the given kind.
func NewPaymentError(kind ErrorKind, message string) *PaymentError {
	return &PaymentError{Kind: kind, Message: message}
}

// WithCause attaches the underlying error.
func (e *PaymentError) WithCause(err error) *PaymentError {
	e.Cause = err
	return e
}

// KindOf reports the kind of err if it is (or wraps) a PaymentError.
func KindOf(err error) (ErrorKind, bool) {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return KindUnknownHTTP, false
}
