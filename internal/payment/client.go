// Package payment предоставляет клиент платёжного провайдера (Stripe Checkout).
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/mmeshcher/syriamall-payments/internal/model"
	"github.com/mmeshcher/syriamall-payments/internal/validation"
)

// OrderIDMetadataKey задаёт ключ метаданных сессии, связывающий её с заказом.
const OrderIDMetadataKey = "order_id"

const defaultProductName = "Product"

var (
	// ErrInvalidSignature возвращается, если подпись webhook не прошла проверку.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent возвращается для тела события, которое не удалось разобрать.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// Client инкапсулирует взаимодействие с платёжным провайдером.
type Client struct {
	api           *client.API
	currency      string
	webhookSecret string
}

// Option настраивает Client.
type Option func(*options)

type options struct {
	currency      string
	webhookSecret string
	backendURL    string
	httpClient    *http.Client
}

// WithCurrency задаёт валюту позиций сессии.
func WithCurrency(code string) Option {
	return func(o *options) {
		o.currency = strings.ToLower(code)
	}
}

// WithWebhookSecret задаёт секрет для проверки подписи webhook.
func WithWebhookSecret(secret string) Option {
	return func(o *options) {
		o.webhookSecret = secret
	}
}

// WithBackendURL направляет API-запросы на указанный адрес вместо api.stripe.com.
func WithBackendURL(url string) Option {
	return func(o *options) {
		o.backendURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient задаёт HTTP-клиент для API-запросов.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// NewClient создаёт клиент провайдера с указанным секретным ключом.
func NewClient(secretKey string, opts ...Option) *Client {
	o := options{
		currency: "usd",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	// Повторы не выполняем: при сбое вызывающая сторона повторит запрос сама.
	newBackend := func(t stripe.SupportedBackend) stripe.Backend {
		cfg := &stripe.BackendConfig{
			HTTPClient:        o.httpClient,
			MaxNetworkRetries: stripe.Int64(0),
		}
		if o.backendURL != "" {
			cfg.URL = stripe.String(o.backendURL)
		}
		return stripe.GetBackendWithConfig(t, cfg)
	}

	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     newBackend(stripe.APIBackend),
		Connect: newBackend(stripe.ConnectBackend),
		Uploads: newBackend(stripe.UploadsBackend),
	})

	return &Client{
		api:           api,
		currency:      o.currency,
		webhookSecret: o.webhookSecret,
	}
}

// VerifiesSignatures сообщает, настроен ли секрет подписи webhook.
func (c *Client) VerifiesSignatures() bool {
	return c.webhookSecret != ""
}

// MinorUnits переводит цену в минимальные единицы валюты с математическим округлением.
// Округление выполняется в десятичной арифметике: 19.995 даёт 2000, а не 1999.
func MinorUnits(price float64) int64 {
	return decimal.NewFromFloat(price).Shift(2).Round(0).IntPart()
}

// CreateCheckoutSession открывает платёжную сессию для заказа.
func (c *Client) CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          c.lineItems(req.Items),
	}
	params.Context = ctx

	if req.SuccessURL != "" {
		params.SuccessURL = stripe.String(req.SuccessURL)
	}
	if req.CancelURL != "" {
		params.CancelURL = stripe.String(req.CancelURL)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(OrderIDMetadataKey, req.OrderID)

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	res := toModelSession(s)
	return &res, nil
}

func (c *Client) lineItems(items []model.CheckoutItem) []*stripe.CheckoutSessionLineItemParams {
	res := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			name = defaultProductName
		}

		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(name),
		}
		// Провайдер отклоняет относительные пути, такие изображения пропускаем.
		if validation.IsHTTPURL(item.Image) {
			product.Images = stripe.StringSlice([]string{item.Image})
		}

		res = append(res, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(c.currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(MinorUnits(item.Price)),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	return res
}

// ListRecentSessions возвращает одну страницу последних платёжных сессий.
func (c *Client) ListRecentSessions(ctx context.Context, limit int64) ([]model.CheckoutSession, error) {
	params := &stripe.CheckoutSessionListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(limit)
	params.Single = true

	it := c.api.CheckoutSessions.List(params)

	var res []model.CheckoutSession
	for it.Next() {
		res = append(res, toModelSession(it.CheckoutSession()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list checkout sessions: %w", err)
	}

	return res, nil
}

// ParseEvent проверяет подпись и разбирает событие webhook.
// Без настроенного секрета тело принимается без проверки (тестовый режим).
func (c *Client) ParseEvent(payload []byte, signature string) (*model.Event, error) {
	var event stripe.Event

	if c.webhookSecret != "" {
		if signature == "" {
			return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
		}

		var err error
		event, err = webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	} else if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}

	res := &model.Event{
		ID:      event.ID,
		Type:    model.ParseEventType(string(event.Type)),
		RawType: string(event.Type),
	}

	if res.Type == model.EventUnknown {
		return res, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("%w: missing event object", ErrMalformedEvent)
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", ErrMalformedEvent, err)
	}
	res.Session = toModelSession(&s)

	return res, nil
}

func toModelSession(s *stripe.CheckoutSession) model.CheckoutSession {
	if s == nil {
		return model.CheckoutSession{}
	}
	return model.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		OrderID:       s.Metadata[OrderIDMetadataKey],
	}
}
