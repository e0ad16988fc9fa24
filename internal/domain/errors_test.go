package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentError_Is(t *testing.T) {
	err := NewPaymentError(KindTimeout, "provider did not respond within 15s").WithCause(context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrConnectivity)

	wrapped := fmt.Errorf("create payment: %w", err)
	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindTimeout, kind)
}

func TestPaymentError_Error(t *testing.T) {
	err := &PaymentError{
		Kind:    KindValidation,
		Message: "invalid payment request",
		Details: []FieldError{
			{Field: "amount", Message: "must be greater than 0"},
			{Field: "currency", Message: "is required"},
		},
	}
	assert.Equal(t, "validation error: invalid payment request - amount: must be greater than 0, currency: is required", err.Error())
	assert.Equal(t, "VALIDATION_ERROR", err.Code())
}

func TestKindOf_Plain(t *testing.T) {
	_, ok := KindOf(errors.New("boom"))
	assert.False(t, ok)
}

func TestErrorKind_Codes(t *testing.T) {
	kinds := []ErrorKind{
		KindUnknownHTTP, KindConfiguration, KindValidation, KindAuthentication, KindAuthorization,
		KindNotFound, KindProviderServer, KindTimeout, KindConnectivity, KindMalformedResponse,
	}
	seen := map[string]bool{}
	for _, k := range kinds {
		assert.False(t, seen[k.Code()], "duplicate code %s", k.Code())
		seen[k.Code()] = true
		assert.ErrorIs(t, NewPaymentError(k, "x"), k.Sentinel())
	}
}
