package khipu

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/khipudemo/khipu-payments/internal/domain"
	"github.com/khipudemo/khipu-payments/internal/platform/logging"
	"github.com/khipudemo/khipu-payments/internal/platform/metrics"
)

// Executor issues exactly one authenticated request per call. It never retries.
type Executor struct {
	http   *resty.Client
	auth   Authenticator
	logger *zerolog.Logger
}

// NewExecutor creates an executor against baseURL.
func NewExecutor(baseURL, userAgent string, auth Authenticator, logger *zerolog.Logger) *Executor {
	if logger == nil {
		logger = logging.Nop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetRetryCount(0)
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &Executor{http: client, auth: auth, logger: logger}
}

// Do sends call bounded by timeout and decodes a successful body into out.
// Every returned error is a *domain.PaymentError.
func (e *Executor) Do(ctx context.Context, call Call, timeout time.Duration, out any) error {
	start := time.Now()
	err := e.do(ctx, call, timeout, out)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		kind, _ := domain.KindOf(err)
		outcome = kind.Code()
	}
	metrics.ObserveProviderCall(e.auth.Generation(), call.Operation, outcome, elapsed)

	ev := e.logger.Debug()
	if err != nil {
		ev = e.logger.Warn().Err(err)
	}
	ev.Str("generation", e.auth.Generation()).
		Str("operation", call.Operation).
		Str("method", call.Method).
		Str("endpoint", call.Endpoint).
		Dur("duration", elapsed).
		Msg("provider call")

	return err
}

func (e *Executor) do(ctx context.Context, call Call, timeout time.Duration, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := e.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json")
	e.auth.Authenticate(req, call)

	resp, err := req.Execute(call.Method, call.Endpoint)
	if err != nil {
		return classifyTransport(err, timeout)
	}
	return Interpret(resp.StatusCode(), resp.Body(), out)
}

// classifyTransport maps a failure with no HTTP response to Timeout or Connectivity.
func classifyTransport(err error, timeout time.Duration) *domain.PaymentError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		msg := "provider did not respond in time"
		if timeout > 0 {
			msg = fmt.Sprintf("provider did not respond within %s", timeout)
		}
		return domain.NewPaymentError(domain.KindTimeout, msg).WithCause(err)
	case errors.Is(err, context.Canceled):
		return domain.NewPaymentError(domain.KindTimeout, "request cancelled before the provider responded").WithCause(err)
	default:
		return domain.NewPaymentError(domain.KindConnectivity, "cannot connect to the payment provider").WithCause(err)
	}
}
