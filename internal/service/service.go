// Package service реализует сверку оплаты заказов с платёжным провайдером.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/syriamall-payments/internal/model"
	"github.com/mmeshcher/syriamall-payments/internal/payment"
	"github.com/mmeshcher/syriamall-payments/internal/repository"
	"github.com/mmeshcher/syriamall-payments/internal/validation"
)

// DefaultSessionScanLimit задаёт число последних сессий, просматриваемых при сверке.
const DefaultSessionScanLimit = 10

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ApplyTransition(ctx context.Context, id string, t model.Transition) (bool, *string, error)
	ClearCart(ctx context.Context, customerID string) (int64, error)
}

// PaymentProvider описывает контракт платёжного провайдера.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutSession, error)
	ListRecentSessions(ctx context.Context, limit int64) ([]model.CheckoutSession, error)
	ParseEvent(payload []byte, signature string) (*model.Event, error)
}

// Options содержит настройки сервиса.
type Options struct {
	// SessionScanLimit ограничивает выборку сессий при сверке одной страницей.
	SessionScanLimit int64
	// PublicBaseURL используется для адресов возврата, если у запроса нет Origin.
	PublicBaseURL string
}

// Service содержит бизнес-логику оплаты заказов.
type Service struct {
	repo      Repository
	provider  PaymentProvider
	logger    *zap.Logger
	scanLimit int64
	baseURL   string
}

// NewService создаёт сервис. provider может быть nil, если ключ провайдера не задан:
// тогда все платёжные операции завершаются ErrConfiguration.
func NewService(repo Repository, provider PaymentProvider, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SessionScanLimit <= 0 {
		opts.SessionScanLimit = DefaultSessionScanLimit
	}

	return &Service{
		repo:      repo,
		provider:  provider,
		logger:    logger,
		scanLimit: opts.SessionScanLimit,
		baseURL:   strings.TrimRight(opts.PublicBaseURL, "/"),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// GetOrder возвращает заказ для отображения статуса оплаты.
func (s *Service) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, validation.ErrMissingOrderID)
	}
	return s.repo.GetOrder(ctx, id)
}

// CreateCheckoutSession открывает платёжную сессию для заказа.
// Каждый вызов создаёт новую сессию.
func (s *Service) CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest, origin string) (*model.CheckoutSession, error) {
	if s.provider == nil {
		return nil, ErrConfiguration
	}

	if err := validation.ValidateCheckout(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := s.fillRedirectURLs(&req, origin); err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	s.logger.Info("checkout session created",
		zap.String("order", req.OrderID),
		zap.String("session", session.ID),
		zap.Int("items", len(req.Items)),
	)

	return session, nil
}

func (s *Service) fillRedirectURLs(req *model.CheckoutRequest, origin string) error {
	if req.SuccessURL != "" && req.CancelURL != "" {
		return nil
	}

	base := strings.TrimRight(origin, "/")
	if base == "" {
		base = s.baseURL
	}
	if base == "" {
		return fmt.Errorf("%w: redirect URLs are required when no origin is known", ErrInvalidRequest)
	}

	if req.SuccessURL == "" {
		req.SuccessURL = fmt.Sprintf("%s/orders/%s?payment=success", base, url.PathEscape(req.OrderID))
	}
	if req.CancelURL == "" {
		req.CancelURL = base + "/checkout?payment=cancelled"
	}

	return nil
}

// HandleEvent проверяет и применяет событие webhook провайдера.
// Повторная и неупорядоченная доставка безопасна: переходы защищены условием в UPDATE.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	if s.provider == nil {
		return ErrConfiguration
	}

	event, err := s.provider.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return fmt.Errorf("%w: %v", ErrSignature, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	log := s.logger.With(zap.String("event", event.ID), zap.String("type", event.RawType))

	switch event.Type {
	case model.EventSessionCompleted:
		orderID := event.Session.OrderID
		if orderID == "" {
			log.Info("session without order id, skipping")
			return nil
		}
		applied, err := s.confirmPayment(ctx, orderID, true)
		if errors.Is(err, repository.ErrOrderNotFound) {
			log.Warn("order from session metadata not found", zap.String("order", orderID))
			return nil
		}
		if err != nil {
			return err
		}
		log.Info("payment confirmed", zap.String("order", orderID), zap.Bool("applied", applied))

	case model.EventSessionExpired:
		orderID := event.Session.OrderID
		if orderID == "" {
			log.Info("session without order id, skipping")
			return nil
		}
		applied, _, err := s.repo.ApplyTransition(ctx, orderID, model.TransitionPaymentFailed)
		if errors.Is(err, repository.ErrOrderNotFound) {
			log.Warn("order from session metadata not found", zap.String("order", orderID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		log.Info("payment expired", zap.String("order", orderID), zap.Bool("applied", applied))

	case model.EventUnknown:
		log.Debug("ignoring event")
	}

	return nil
}

// VerifyPayment сверяет оплату заказа с провайдером и применяет подтверждение,
// если webhook ещё не дошёл. Просматривается только одна страница последних сессий.
func (s *Service) VerifyPayment(ctx context.Context, orderID string) (*model.VerifyResult, error) {
	if s.provider == nil {
		return nil, ErrConfiguration
	}

	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, validation.ErrMissingOrderID)
	}

	sessions, err := s.provider.ListRecentSessions(ctx, s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	var found *model.CheckoutSession
	for i := range sessions {
		if sessions[i].OrderID == orderID {
			found = &sessions[i]
			break
		}
	}

	if found == nil {
		return &model.VerifyResult{}, nil
	}

	if !found.Paid() {
		return &model.VerifyResult{
			SessionFound:  true,
			PaymentStatus: found.PaymentStatus,
		}, nil
	}

	applied, err := s.confirmPayment(ctx, orderID, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment verified",
		zap.String("order", orderID),
		zap.String("session", found.ID),
		zap.Bool("applied", applied),
	)

	return &model.VerifyResult{
		Verified:      true,
		SessionFound:  true,
		PaymentStatus: found.PaymentStatus,
	}, nil
}

// confirmPayment применяет подтверждение оплаты и очищает корзину покупателя.
// Без alwaysClear корзина очищается, только если запись произошла.
// Ошибка очистки корзины не влияет на результат.
func (s *Service) confirmPayment(ctx context.Context, orderID string, alwaysClear bool) (bool, error) {
	applied, customerID, err := s.repo.ApplyTransition(ctx, orderID, model.TransitionPaymentConfirmed)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return false, err
		}
		return false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if (applied || alwaysClear) && customerID != nil && *customerID != "" {
		s.clearCart(ctx, *customerID)
	}

	return applied, nil
}

func (s *Service) clearCart(ctx context.Context, customerID string) {
	deleted, err := s.repo.ClearCart(ctx, customerID)
	if err != nil {
		s.logger.Error("clear cart error", zap.Error(err), zap.String("customer", customerID))
		return
	}
	s.logger.Debug("cart cleared", zap.String("customer", customerID), zap.Int64("items", deleted))
}
