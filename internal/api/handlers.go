// Package api contains the HTTP handlers and routing for the payment service.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/khipudemo/khipu-payments/internal/domain"
	"github.com/khipudemo/khipu-payments/internal/payment"
	"github.com/khipudemo/khipu-payments/internal/platform/logging"
)

// Handler contains the HTTP handlers for the payment API.
type Handler struct {
	paymentService *payment.Service
	forwarder      domain.NotificationForwarder
	logger         *zerolog.Logger

	// relays tracks notification forwards still running after their acknowledgement.
	relays sync.WaitGroup
}

// NewHandler creates a new API handler with the payment service.
// forwarder may be nil, in which case notifications are only logged.
func NewHandler(paymentService *payment.Service, forwarder domain.NotificationForwarder, logger *zerolog.Logger) *Handler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Handler{
		paymentService: paymentService,
		forwarder:      forwarder,
		logger:         logger,
	}
}

// CreatePaymentRequest represents the JSON body for the create endpoint.
type CreatePaymentRequest struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Subject       string  `json:"subject"`
	Body          string  `json:"body"`
	PayerEmail    string  `json:"payer_email"`
	TransactionID string  `json:"transaction_id"`
	ReturnURL     string  `json:"return_url"`
	CancelURL     string  `json:"cancel_url"`
	NotifyURL     string  `json:"notify_url"`
	Custom        string  `json:"custom"`
	ExpiresDate   string  `json:"expires_date"`
	BankID        string  `json:"bank_id"`
}

// SuccessResponse wraps a successful payload.
type SuccessResponse struct {
	Success  bool   `json:"success"`
	Data     any    `json:"data"`
	Provider string `json:"provider,omitempty"`
}

// BanksResponse is returned by the bank list endpoint.
type BanksResponse struct {
	Success bool          `json:"success"`
	Banks   []domain.Bank `json:"banks"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error"`
	Code    string              `json:"code,omitempty"`
	Details []domain.FieldError `json:"details,omitempty"`
}

// CreatePayment handles POST /api/payments
// Creates a payment and returns the checkout URLs.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    domain.KindValidation.Code(),
		})
		return
	}

	resp, err := h.paymentService.CreatePayment(c.Request.Context(), domain.PaymentRequest{
		Amount:        req.Amount,
		Currency:      req.Currency,
		Subject:       req.Subject,
		Body:          req.Body,
		PayerEmail:    req.PayerEmail,
		TransactionID: req.TransactionID,
		ReturnURL:     req.ReturnURL,
		CancelURL:     req.CancelURL,
		NotifyURL:     req.NotifyURL,
		Custom:        req.Custom,
		ExpiresDate:   req.ExpiresDate,
		BankID:        req.BankID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Success:  true,
		Data:     resp,
		Provider: h.paymentService.Generation(),
	})
}

// GetPayment handles GET /api/payments/:id
func (h *Handler) GetPayment(c *gin.Context) {
	info, err := h.paymentService.GetPaymentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: info})
}

// ListPayments handles GET /api/payments
func (h *Handler) ListPayments(c *gin.Context) {
	var filter domain.PaymentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid query: " + err.Error(),
			Code:    domain.KindValidation.Code(),
		})
		return
	}

	list, err := h.paymentService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: list})
}

// ListBanks handles GET /api/banks
func (h *Handler) ListBanks(c *gin.Context) {
	banks, err := h.paymentService.ListBanks(c.Request.Context())
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if banks == nil {
		banks = []domain.Bank{}
	}
	c.JSON(http.StatusOK, BanksResponse{Success: true, Banks: banks})
}

const notifyRelayTimeout = 30 * time.Second

// HandleNotify handles POST /api/notify
// The provider retries on non-2xx, so the notification is always acknowledged.
func (h *Handler) HandleNotify(c *gin.Context) {
	receiptID := uuid.NewString()

	var n domain.Notification
	if err := c.ShouldBind(&n); err != nil {
		h.logger.Warn().Err(err).Str("receipt_id", receiptID).Msg("unparseable notification")
		c.JSON(http.StatusOK, gin.H{"status": "received", "receipt_id": receiptID})
		return
	}
	n.ReceiptID = receiptID
	n.ReceivedAt = time.Now().UTC().Format(time.RFC3339)

	h.logger.Info().
		Str("receipt_id", receiptID).
		Str("notification_token", n.NotificationToken).
		Str("api_version", n.APIVersion).
		Str("payment_id", n.PaymentID).
		Msg("notification received")

	c.JSON(http.StatusOK, gin.H{"status": "received", "receipt_id": receiptID})

	if h.forwarder != nil {
		// The relay outlives the provider's request.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), notifyRelayTimeout)
		h.relays.Add(1)
		go func() {
			defer h.relays.Done()
			defer cancel()
			if err := h.forwarder.Forward(ctx, n); err != nil {
				h.logger.Error().Err(err).Str("receipt_id", n.ReceiptID).Msg("failed to forward notification")
			}
		}()
	}
}

// Wait blocks until every pending notification relay has finished.
func (h *Handler) Wait() {
	h.relays.Wait()
}

// NotifyStatus handles GET /api/notify
func (h *Handler) NotifyStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "khipu-payments",
	})
}

// statusForKind maps error kinds to HTTP responses.
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindConnectivity:
		return http.StatusServiceUnavailable
	case domain.KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(c *gin.Context, err error) {
	var paymentErr *domain.PaymentError
	if errors.As(err, &paymentErr) {
		msg := paymentErr.Message
		if strings.TrimSpace(msg) == "" {
			msg = paymentErr.Kind.String()
		}
		c.JSON(statusForKind(paymentErr.Kind), ErrorResponse{
			Success: false,
			Error:   msg,
			Code:    paymentErr.Code(),
			Details: paymentErr.Details,
		})
		return
	}

	// Generic error
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   "Internal server error",
		Code:    "INTERNAL_ERROR",
	})
}
