// Package domain contains the core business entities and interfaces for the payment service.
package domain

import "context"

// PaymentGateway defines the interface for one generation of the payment provider API.
// Every error returned is a *PaymentError.
type PaymentGateway interface {
	// Generation names the API generation, e.g. "v3" or "v2".
	Generation() string

	// CreatePayment creates a payment and returns its checkout URLs.
	CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)

	// GetPayment retrieves a payment by its provider identifier.
	GetPayment(ctx context.Context, paymentID string) (*PaymentInfo, error)

	// ListPayments lists payments matching the filter.
	ListPayments(ctx context.Context, filter PaymentFilter) (*PaymentList, error)

	BankLister
}

// BankLister lists the banks supported by the provider.
type BankLister interface {
	ListBanks(ctx context.Context) ([]Bank, error)
}

// NotificationForwarder relays acknowledged provider notifications to a
// downstream backend.
type NotificationForwarder interface {
	Forward(ctx context.Context, n Notification) error
}
