// Package main запускает HTTP-сервер платёжного сервиса SyriaMall.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/syriamall-payments/internal/config"
	"github.com/mmeshcher/syriamall-payments/internal/handler"
	"github.com/mmeshcher/syriamall-payments/internal/payment"
	"github.com/mmeshcher/syriamall-payments/internal/repository"
	"github.com/mmeshcher/syriamall-payments/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	// Без ключа провайдера сервис стартует, но платёжные операции возвращают ошибку конфигурации.
	var provider service.PaymentProvider
	if cfg.StripeSecretKey != "" {
		client := payment.NewClient(cfg.StripeSecretKey,
			payment.WithCurrency(cfg.Currency),
			payment.WithWebhookSecret(cfg.StripeWebhookSecret),
		)
		if !client.VerifiesSignatures() {
			sugar.Warn("webhook signing secret is not set, webhook payloads are trusted without verification")
		}
		provider = client
	} else {
		sugar.Warn("payment provider secret key is not set, payment endpoints are disabled")
	}

	svc := service.NewService(repo, provider, logger, service.Options{
		SessionScanLimit: cfg.SessionScanLimit,
		PublicBaseURL:    cfg.PublicBaseURL,
	})
	defer svc.Close()

	h := handler.NewHandler(svc, logger)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sugar.Infow("starting payments server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
