// Package handler содержит HTTP-обработчики платёжного API SyriaMall.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	custommiddleware "github.com/mmeshcher/syriamall-payments/internal/middleware"
	"github.com/mmeshcher/syriamall-payments/internal/model"
	"github.com/mmeshcher/syriamall-payments/internal/repository"
	"github.com/mmeshcher/syriamall-payments/internal/service"
)

const (
	maxWebhookBody  = 1 << 20
	signatureHeader = "Stripe-Signature"
	noSessionFound  = "No payment session found"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest, origin string) (*model.CheckoutSession, error)
	HandleEvent(ctx context.Context, payload []byte, signature string) error
	VerifyPayment(ctx context.Context, orderID string) (*model.VerifyResult, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	Ping(ctx context.Context) error
}

// Handler реализует HTTP-обработчики платёжного API.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

// log возвращает логгер, дополненный идентификатором запроса.
func (h *Handler) log(r *http.Request) *zap.Logger {
	if id, ok := custommiddleware.GetRequestIDFromContext(r.Context()); ok {
		return h.logger.With(zap.String("request_id", id))
	}
	return h.logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// errorStatus сопоставляет ошибки сервиса с HTTP-статусами.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrSignature),
		errors.Is(err, service.ErrProvider):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type checkoutItemRequest struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity *int64  `json:"quantity"`
	Image    string  `json:"image,omitempty"`
}

type checkoutRequest struct {
	Items         []checkoutItemRequest `json:"items"`
	OrderID       string                `json:"orderId"`
	CustomerEmail string                `json:"customerEmail,omitempty"`
	SuccessURL    string                `json:"successUrl,omitempty"`
	CancelURL     string                `json:"cancelUrl,omitempty"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckoutSession открывает платёжную сессию и возвращает адрес страницы оплаты.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]model.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		// Количество по умолчанию 1, явный 0 отклоняется валидацией.
		quantity := int64(1)
		if it.Quantity != nil {
			quantity = *it.Quantity
		}
		items = append(items, model.CheckoutItem{
			Name:     it.Name,
			Price:    it.Price,
			Quantity: quantity,
			Image:    it.Image,
		})
	}

	session, err := h.service.CreateCheckoutSession(r.Context(), model.CheckoutRequest{
		Items:         items,
		OrderID:       req.OrderID,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	}, r.Header.Get("Origin"))
	if err != nil {
		h.log(r).Error("create checkout session error", zap.Error(err), zap.String("order", req.OrderID))
		writeError(w, errorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		SessionID: session.ID,
		URL:       session.URL,
	})
}

type webhookResponse struct {
	Received bool `json:"received"`
}

// Webhook принимает события платёжного провайдера.
// Любая ошибка обработки возвращается с кодом 400, чтобы провайдер доставил событие повторно.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log(r).Warn("webhook payload too large", zap.Int64("limit", tooLarge.Limit))
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if err := h.service.HandleEvent(r.Context(), body, r.Header.Get(signatureHeader)); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, service.ErrConfiguration) {
			status = http.StatusInternalServerError
		}
		if errors.Is(err, service.ErrSignature) {
			h.log(r).Warn("webhook signature verification failed", zap.Error(err))
			writeError(w, status, "Invalid signature")
			return
		}
		h.log(r).Error("webhook error", zap.Error(err))
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Received: true})
}

type verifyRequest struct {
	OrderID string `json:"orderId"`
}

type verifyResponse struct {
	Verified      bool   `json:"verified"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	Message       string `json:"message,omitempty"`
}

// VerifyPayment сверяет оплату заказа с провайдером.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.service.VerifyPayment(r.Context(), req.OrderID)
	if err != nil {
		h.log(r).Error("verify payment error", zap.Error(err), zap.String("order", req.OrderID))
		writeError(w, errorStatus(err), err.Error())
		return
	}

	if !res.SessionFound {
		writeJSON(w, http.StatusOK, verifyResponse{Verified: false, Message: noSessionFound})
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Verified:      res.Verified,
		PaymentStatus: res.PaymentStatus,
	})
}

type orderItemResponse struct {
	ProductName string  `json:"productName"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Subtotal    float64 `json:"subtotal"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
	Total         float64             `json:"total"`
	Items         []orderItemResponse `json:"items"`
	CreatedAt     string              `json:"createdAt"`
	UpdatedAt     string              `json:"updatedAt"`
}

// GetOrder возвращает статус оплаты и исполнения заказа.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	o, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if !errors.Is(err, repository.ErrOrderNotFound) {
			h.log(r).Error("get order error", zap.Error(err), zap.String("order", orderID))
		}
		writeError(w, errorStatus(err), err.Error())
		return
	}

	resp := orderResponse{
		ID:            o.ID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Total:         o.Total,
		Items:         make([]orderItemResponse, 0, len(o.Items)),
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     o.UpdatedAt.Format(time.RFC3339),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.log(r).Error("health check error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
