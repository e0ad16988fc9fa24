// Package payment implements the payment client facade.
// This is the service/use-case layer: it validates input, fills defaults and
// delegates to a provider gateway.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khipudemo/khipu-payments/internal/domain"
	"github.com/khipudemo/khipu-payments/internal/platform/logging"
	"github.com/khipudemo/khipu-payments/internal/platform/metrics"
)

// Limits bound the accepted amount. Zero means unbounded.
type Limits struct {
	MinAmount float64
	MaxAmount float64
}

// Config holds facade settings.
type Config struct {
	// BaseURL is the public URL of this service, used for return/cancel/notify links.
	BaseURL string
	Limits  Limits
}

// Service is the only entry point the route layer uses.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	gateway  domain.PaymentGateway
	banks    []domain.PaymentGateway
	validate *validator.Validate
	baseURL  string
	limits   Limits
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewService creates the facade. Payments go to gateway; bank listings try
// gateway first and then each of bankFallbacks in order.
func NewService(gateway domain.PaymentGateway, bankFallbacks []domain.PaymentGateway, cfg Config, logger *zerolog.Logger) (*Service, error) {
	if gateway == nil {
		return nil, domain.NewPaymentError(domain.KindConfiguration, "payment gateway is required")
	}
	if cfg.Limits.MaxAmount > 0 && cfg.Limits.MinAmount > cfg.Limits.MaxAmount {
		return nil, domain.NewPaymentError(domain.KindConfiguration,
			"minimum amount is greater than maximum amount")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	banks := append([]domain.PaymentGateway{gateway}, bankFallbacks...)
	return &Service{
		gateway:  gateway,
		banks:    banks,
		validate: v,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		limits:   cfg.Limits,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Generation names the API generation that serves payments.
func (s *Service) Generation() string {
	return s.gateway.Generation()
}

// CreatePayment validates req, fills defaults and creates the payment.
// No network call is made when validation fails.
func (s *Service) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResponse, error) {
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	req.Subject = strings.TrimSpace(req.Subject)

	if err := s.validateRequest(req); err != nil {
		s.logger.Info().Err(err).Msg("payment request rejected")
		return nil, err
	}
	s.applyDefaults(&req)

	s.logger.Info().
		Str("operation", "create_payment").
		Str("generation", s.gateway.Generation()).
		Float64("amount", req.Amount).
		Str("currency", req.Currency).
		Str("subject", req.Subject).
		Str("transaction_id", req.TransactionID).
		Msg("creating payment")

	resp, err := s.gateway.CreatePayment(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("transaction_id", req.TransactionID).Msg("failed to create payment")
		return nil, err
	}

	s.logger.Info().
		Str("payment_id", resp.PaymentID).
		Str("transaction_id", req.TransactionID).
		Msg("payment created")
	return resp, nil
}

// GetPaymentStatus fetches a payment by its provider identifier.
func (s *Service) GetPaymentStatus(ctx context.Context, paymentID string) (*domain.PaymentInfo, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, validationError("payment_id is required",
			domain.FieldError{Field: "payment_id", Message: "is required"})
	}

	s.logger.Info().
		Str("operation", "get_payment").
		Str("generation", s.gateway.Generation()).
		Str("payment_id", paymentID).
		Msg("fetching payment status")

	info, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		s.logger.Error().Err(err).Str("payment_id", paymentID).Msg("failed to fetch payment")
		return nil, err
	}
	return info, nil
}

// ListPayments lists payments matching filter.
func (s *Service) ListPayments(ctx context.Context, filter domain.PaymentFilter) (*domain.PaymentList, error) {
	if filter.Page < 0 || filter.PageSize < 0 {
		return nil, validationError("page and page_size must not be negative")
	}

	s.logger.Info().
		Str("operation", "list_payments").
		Str("generation", s.gateway.Generation()).
		Int("page", filter.Page).
		Str("status", filter.Status).
		Msg("listing payments")

	list, err := s.gateway.ListPayments(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list payments")
		return nil, err
	}
	return list, nil
}

// ListBanks tries each generation in order. A later attempt starts only after
// the previous one has failed; the last failure is the one returned.
func (s *Service) ListBanks(ctx context.Context) ([]domain.Bank, error) {
	var lastErr error
	for i, gw := range s.banks {
		banks, err := gw.ListBanks(ctx)
		if err == nil {
			if i > 0 {
				metrics.IncBankFallback("recovered")
			}
			s.logger.Info().
				Str("operation", "list_banks").
				Str("generation", gw.Generation()).
				Int("count", len(banks)).
				Msg("banks listed")
			return banks, nil
		}

		lastErr = err
		ev := s.logger.Warn().Err(err).Str("generation", gw.Generation())
		if i < len(s.banks)-1 {
			ev.Str("next", s.banks[i+1].Generation()).Msg("bank listing failed, falling back")
		} else {
			ev.Msg("bank listing failed")
		}
	}

	if len(s.banks) > 1 {
		metrics.IncBankFallback("failed")
	}
	return nil, lastErr
}

func (s *Service) validateRequest(req domain.PaymentRequest) error {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return validationError("amount must be a finite number",
			domain.FieldError{Field: "amount", Message: "must be a finite number"})
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return validationError(err.Error())
		}
		details := make([]domain.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, domain.FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		return validationError("invalid payment request", details...)
	}

	amount := decimal.NewFromFloat(req.Amount)
	if lo := decimal.NewFromFloat(s.limits.MinAmount); lo.IsPositive() && amount.LessThan(lo) {
		return validationError(fmt.Sprintf("amount %s is below the minimum of %s %s", amount, lo, req.Currency),
			domain.FieldError{Field: "amount", Message: "below minimum"})
	}
	if hi := decimal.NewFromFloat(s.limits.MaxAmount); hi.IsPositive() && amount.GreaterThan(hi) {
		return validationError(fmt.Sprintf("amount %s is above the maximum of %s %s", amount, hi, req.Currency),
			domain.FieldError{Field: "amount", Message: "above maximum"})
	}
	return nil
}

func (s *Service) applyDefaults(req *domain.PaymentRequest) {
	if req.TransactionID == "" {
		req.TransactionID = "tx_" + strconv.FormatInt(s.now().UnixMilli(), 10)
	}
	if s.baseURL == "" {
		return
	}
	if req.ReturnURL == "" {
		req.ReturnURL = s.baseURL + "/payment/success"
	}
	if req.CancelURL == "" {
		req.CancelURL = s.baseURL + "/payment/cancelled"
	}
	// The provider rejects notify URLs on loopback hosts.
	if req.NotifyURL == "" && !isLoopback(s.baseURL) {
		req.NotifyURL = s.baseURL + "/api/notify"
	}
}

func isLoopback(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func validationError(message string, details ...domain.FieldError) *domain.PaymentError {
	e := domain.NewPaymentError(domain.KindValidation, message)
	e.Details = details
	return e
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return "must be " + fe.Param() + " characters long"
	case "alpha":
		return "must contain only letters"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
