package khipu

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/khipudemo/khipu-payments/internal/domain"
)

// Default provider endpoints.
const (
	DefaultBaseURL       = "https://payment-api.khipu.com/v3"
	DefaultLegacyBaseURL = "https://khipu.com/api/2.0"
)

// Timeouts bound each operation's wall-clock budget.
type Timeouts struct {
	Create time.Duration
	Query  time.Duration
	Banks  time.Duration
}

// DefaultTimeouts returns the budgets used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{Create: 15 * time.Second, Query: 30 * time.Second, Banks: 10 * time.Second}
}

// Options configure a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeouts  Timeouts
	Logger    *zerolog.Logger
}

// Client implements domain.PaymentGateway for one API generation.
type Client struct {
	exec             *Executor
	generation       string
	notifyAPIVersion string
	timeouts         Timeouts
}

// NewClient creates a client for the JSON generation authenticated by API key.
func NewClient(creds Credentials, opts Options) (*Client, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return newClient(NewAPIKeyAuth(creds), "3.0", opts), nil
}

// NewLegacyClient creates a client for the form generation authenticated by HMAC signature.
func NewLegacyClient(creds Credentials, scheme SigningScheme, opts Options) (*Client, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultLegacyBaseURL
	}
	return newClient(NewHMACAuth(creds, scheme, opts.BaseURL, opts.Logger), "1.3", opts), nil
}

func newClient(auth Authenticator, notifyAPIVersion string, opts Options) *Client {
	t := DefaultTimeouts()
	if opts.Timeouts.Create > 0 {
		t.Create = opts.Timeouts.Create
	}
	if opts.Timeouts.Query > 0 {
		t.Query = opts.Timeouts.Query
	}
	if opts.Timeouts.Banks > 0 {
		t.Banks = opts.Timeouts.Banks
	}
	return &Client{
		exec:             NewExecutor(opts.BaseURL, opts.UserAgent, auth, opts.Logger),
		generation:       auth.Generation(),
		notifyAPIVersion: notifyAPIVersion,
		timeouts:         t,
	}
}

// Generation implements domain.PaymentGateway.
func (c *Client) Generation() string { return c.generation }

// CreatePayment implements domain.PaymentGateway.
func (c *Client) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResponse, error) {
	if req.NotifyURL != "" && req.NotifyAPIVersion == "" {
		req.NotifyAPIVersion = c.notifyAPIVersion
	}

	var out domain.PaymentResponse
	call := Call{
		Operation: "create_payment",
		Method:    http.MethodPost,
		Endpoint:  "/payments",
		Params:    paymentParams(req),
		Body:      req,
	}
	if err := c.exec.Do(ctx, call, c.timeouts.Create, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPayment implements domain.PaymentGateway.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*domain.PaymentInfo, error) {
	var out domain.PaymentInfo
	call := Call{
		Operation: "get_payment",
		Method:    http.MethodGet,
		Endpoint:  "/payments/" + url.PathEscape(paymentID),
		Params:    Params{},
	}
	if err := c.exec.Do(ctx, call, c.timeouts.Query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPayments implements domain.PaymentGateway.
func (c *Client) ListPayments(ctx context.Context, filter domain.PaymentFilter) (*domain.PaymentList, error) {
	params := Params{}
	if filter.Page > 0 {
		params.Set("page", filter.Page)
	}
	if filter.PageSize > 0 {
		params.Set("page_size", filter.PageSize)
	}
	params.Set("status", filter.Status)
	params.Set("since", filter.Since)
	params.Set("until", filter.Until)

	var out domain.PaymentList
	call := Call{
		Operation: "list_payments",
		Method:    http.MethodGet,
		Endpoint:  "/payments",
		Params:    params,
	}
	if err := c.exec.Do(ctx, call, c.timeouts.Query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type banksResponse struct {
	Banks []domain.Bank `json:"banks"`
}

// ListBanks implements domain.BankLister.
func (c *Client) ListBanks(ctx context.Context) ([]domain.Bank, error) {
	var out banksResponse
	call := Call{
		Operation: "list_banks",
		Method:    http.MethodGet,
		Endpoint:  "/banks",
		Params:    Params{},
	}
	if err := c.exec.Do(ctx, call, c.timeouts.Banks, &out); err != nil {
		return nil, err
	}
	return out.Banks, nil
}

// paymentParams flattens a create request into the form parameter set.
func paymentParams(req domain.PaymentRequest) Params {
	p := Params{}
	p.Set("amount", req.Amount)
	p.Set("currency", req.Currency)
	p.Set("subject", req.Subject)
	p.Set("body", req.Body)
	p.Set("payer_email", req.PayerEmail)
	p.Set("transaction_id", req.TransactionID)
	p.Set("custom", req.Custom)
	p.Set("return_url", req.ReturnURL)
	p.Set("cancel_url", req.CancelURL)
	p.Set("notify_url", req.NotifyURL)
	p.Set("notify_api_version", req.NotifyAPIVersion)
	p.Set("picture_url", req.PictureURL)
	p.Set("expires_date", req.ExpiresDate)
	p.Set("bank_id", req.BankID)
	if req.SendEmail {
		p.Set("send_email", true)
	}
	if req.SendReminders {
		p.Set("send_reminders", true)
	}
	return p
}
