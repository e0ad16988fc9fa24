// Package domain contains the core business entities and interfaces for the payment service.
// This is the innermost layer of the service - it has no dependencies on
// external frameworks or infrastructure.
package domain

// PaymentRequest is the outbound request to create a payment.
type PaymentRequest struct {
	Amount        float64 `json:"amount" validate:"gt=0"`
	Currency      string  `json:"currency" validate:"required,alpha,len=3"`
	Subject       string  `json:"subject" validate:"required"`
	Body          string  `json:"body,omitempty"`
	PayerEmail    string  `json:"payer_email,omitempty" validate:"omitempty,email"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Custom        string  `json:"custom,omitempty"`
	ReturnURL     string  `json:"return_url,omitempty" validate:"omitempty,url"`
	CancelURL     string  `json:"cancel_url,omitempty" validate:"omitempty,url"`
	NotifyURL     string  `json:"notify_url,omitempty" validate:"omitempty,url"`
	PictureURL    string  `json:"picture_url,omitempty" validate:"omitempty,url"`
	ExpiresDate   string  `json:"expires_date,omitempty"`
	BankID        string  `json:"bank_id,omitempty"`
	SendEmail     bool    `json:"send_email,omitempty"`
	SendReminders bool    `json:"send_reminders,omitempty"`

	NotifyAPIVersion string `json:"notify_api_version,omitempty"`
}

// PaymentResponse is the provider's answer to a successful create.
type PaymentResponse struct {
	PaymentID             string `json:"payment_id"`
	PaymentURL            string `json:"payment_url"`
	SimplifiedTransferURL string `json:"simplified_transfer_url,omitempty"`
	TransferURL           string `json:"transfer_url,omitempty"`
	AppURL                string `json:"app_url,omitempty"`
	ReadyForTerminal      bool   `json:"ready_for_terminal"`
}

// PaymentInfo is the full payment record returned by a status lookup.
type PaymentInfo struct {
	PaymentID             string   `json:"payment_id"`
	PaymentURL            string   `json:"payment_url"`
	SimplifiedTransferURL string   `json:"simplified_transfer_url,omitempty"`
	TransferURL           string   `json:"transfer_url,omitempty"`
	AppURL                string   `json:"app_url,omitempty"`
	ReadyForTerminal      bool     `json:"ready_for_terminal"`
	NotificationToken     string   `json:"notification_token,omitempty"`
	ReceiverID            int64    `json:"receiver_id,omitempty"`
	ConciliationDate      string   `json:"conciliation_date,omitempty"`
	Subject               string   `json:"subject"`
	Amount                float64  `json:"amount"`
	Currency              string   `json:"currency"`
	Status                string   `json:"status"`        // "pending", "verifying", "done"
	StatusDetail          string   `json:"status_detail"` // more detailed status
	Body                  string   `json:"body,omitempty"`
	ReceiptURL            string   `json:"receipt_url,omitempty"`
	ReturnURL             string   `json:"return_url,omitempty"`
	CancelURL             string   `json:"cancel_url,omitempty"`
	NotifyURL             string   `json:"notify_url,omitempty"`
	ExpiresDate           string   `json:"expires_date,omitempty"`
	AttachmentURLs        []string `json:"attachment_urls,omitempty"`
	Bank                  string   `json:"bank,omitempty"`
	BankID                string   `json:"bank_id,omitempty"`
	PayerName             string   `json:"payer_name,omitempty"`
	PayerEmail            string   `json:"payer_email,omitempty"`
	PersonalIdentifier    string   `json:"personal_identifier,omitempty"`
	TransactionID         string   `json:"transaction_id,omitempty"`
	Custom                string   `json:"custom,omitempty"`
	PaymentMethod         string   `json:"payment_method,omitempty"`
}

// PaymentFilter narrows a payment listing. Zero values are omitted.
type PaymentFilter struct {
	Page     int    `json:"page,omitempty" form:"page"`
	PageSize int    `json:"page_size,omitempty" form:"page_size"`
	Status   string `json:"status,omitempty" form:"status"`
	Since    string `json:"since,omitempty" form:"since"`
	Until    string `json:"until,omitempty" form:"until"`
}

// PaymentList is one page of payments.
type PaymentList struct {
	Payments   []PaymentInfo `json:"payments"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	TotalCount int           `json:"total_count"`
}

// Bank is a bank supported by the provider.
type Bank struct {
	BankID    string  `json:"bank_id"`
	Name      string  `json:"name"`
	Message   string  `json:"message,omitempty"`
	MinAmount float64 `json:"min_amount"`
	Type      string  `json:"type,omitempty"`
	Parent    string  `json:"parent,omitempty"`
	LogoURL   string  `json:"logo_url,omitempty"`
}

// Notification is a payment notification received from the provider.
type Notification struct {
	ReceiptID         string `json:"receipt_id"`
	NotificationToken string `json:"notification_token" form:"notification_token"`
	APIVersion        string `json:"api_version" form:"api_version"`
	PaymentID         string `json:"payment_id,omitempty" form:"payment_id"`
	ReceivedAt        string `json:"received_at"`
}
