// Package model содержит доменные сущности платёжного сервиса SyriaMall.
package model

import "time"

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// OrderStatus описывает стадию исполнения заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

// Order описывает заказ покупателя маркетплейса.
type Order struct {
	ID            string
	CustomerID    *string
	PaymentStatus PaymentStatus
	Status        OrderStatus
	Total         float64
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem описывает позицию заказа.
type OrderItem struct {
	ProductName string
	Quantity    int64
	UnitPrice   float64
}

// Subtotal возвращает стоимость позиции.
func (i OrderItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// CheckoutItem описывает позицию, передаваемую на страницу оплаты.
type CheckoutItem struct {
	Name     string
	Price    float64
	Quantity int64
	Image    string
}

// CheckoutRequest содержит данные для открытия платёжной сессии.
type CheckoutRequest struct {
	Items         []CheckoutItem
	OrderID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession описывает платёжную сессию на стороне провайдера.
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	OrderID       string
}

// SessionPaymentStatusPaid обозначает оплаченную сессию у провайдера.
const SessionPaymentStatusPaid = "paid"

// Paid сообщает, подтверждена ли оплата сессии провайдером.
func (s CheckoutSession) Paid() bool {
	return s.PaymentStatus == SessionPaymentStatusPaid
}

// VerifyResult описывает результат сверки оплаты заказа с провайдером.
type VerifyResult struct {
	Verified      bool
	SessionFound  bool
	PaymentStatus string
}
