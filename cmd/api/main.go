// Khipu Payments Service
//
// This is the main entry point for the payment service.
// It wires up all dependencies and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/khipudemo/khipu-payments/config"
	"github.com/khipudemo/khipu-payments/internal/api"
	"github.com/khipudemo/khipu-payments/internal/domain"
	"github.com/khipudemo/khipu-payments/internal/payment"
	"github.com/khipudemo/khipu-payments/internal/platform/forwarder"
	"github.com/khipudemo/khipu-payments/internal/platform/khipu"
	"github.com/khipudemo/khipu-payments/internal/platform/logging"
	"github.com/khipudemo/khipu-payments/internal/platform/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	logger.Info().
		Str("port", cfg.Server.Port).
		Str("auth_mode", cfg.Khipu.AuthMode).
		Str("signing_scheme", cfg.Khipu.SigningScheme).
		Str("receiver_id", cfg.Khipu.ReceiverID).
		Str("api_key", logging.Redact(cfg.Khipu.APIKey)).
		Msg("starting khipu payments service")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}

	paymentService, err := buildService(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build payment service")
	}

	metrics.MustRegister()

	var notifier domain.NotificationForwarder
	if cfg.Notify.ForwardURL != "" {
		notifier = forwarder.NewClient(cfg.Notify.ForwardURL, cfg.Notify.ForwardSecret, cfg.Notify.ForwardTimeout)
		logger.Info().Str("url", cfg.Notify.ForwardURL).Msg("forwarding provider notifications")
	}

	handler := api.NewHandler(paymentService, notifier, logger)
	router := api.SetupRouter(handler, cfg.Server.GinMode, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	handler.Wait()
}

// buildService wires both API generations into the facade. The configured
// auth mode serves payments; the other generation backs up bank listing.
func buildService(cfg *config.Config, logger *zerolog.Logger) (*payment.Service, error) {
	creds, err := khipu.NewCredentials(cfg.Khipu.ReceiverID, cfg.Khipu.APIKey, cfg.Khipu.SecretKey)
	if err != nil {
		return nil, err
	}
	scheme, err := khipu.SchemeByName(cfg.Khipu.SigningScheme)
	if err != nil {
		return nil, domain.NewPaymentError(domain.KindConfiguration, err.Error())
	}

	timeouts := khipu.Timeouts{
		Create: cfg.Khipu.CreateTimeout,
		Query:  cfg.Khipu.QueryTimeout,
		Banks:  cfg.Khipu.BanksTimeout,
	}

	current, err := khipu.NewClient(creds, khipu.Options{
		BaseURL:   cfg.Khipu.BaseURL,
		UserAgent: cfg.Khipu.UserAgent,
		Timeouts:  timeouts,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	legacy, err := khipu.NewLegacyClient(creds, scheme, khipu.Options{
		BaseURL:   cfg.Khipu.LegacyBaseURL,
		UserAgent: cfg.Khipu.UserAgent,
		Timeouts:  timeouts,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	primary, secondary := domain.PaymentGateway(current), domain.PaymentGateway(legacy)
	if cfg.Khipu.AuthMode == config.AuthModeHMAC {
		primary, secondary = legacy, current
	}

	var fallbacks []domain.PaymentGateway
	if cfg.Khipu.BanksFallback {
		fallbacks = append(fallbacks, secondary)
	}

	return payment.NewService(primary, fallbacks, payment.Config{
		BaseURL: cfg.Payment.BaseURL,
		Limits: payment.Limits{
			MinAmount: cfg.Payment.MinAmount,
			MaxAmount: cfg.Payment.MaxAmount,
		},
	}, logger)
}
