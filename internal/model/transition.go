package model

// Transition описывает переход статусов заказа, вызванный результатом оплаты.
type Transition int

const (
	// TransitionPaymentConfirmed переводит заказ в paid/processing.
	TransitionPaymentConfirmed Transition = iota + 1
	// TransitionPaymentFailed переводит заказ в failed/cancelled, только из pending.
	TransitionPaymentFailed
)

// String возвращает имя перехода для логов.
func (t Transition) String() string {
	switch t {
	case TransitionPaymentConfirmed:
		return "payment_confirmed"
	case TransitionPaymentFailed:
		return "payment_failed"
	default:
		return "unknown"
	}
}

// Target возвращает итоговую пару статусов перехода.
func (t Transition) Target() (PaymentStatus, OrderStatus, bool) {
	switch t {
	case TransitionPaymentConfirmed:
		return PaymentStatusPaid, OrderStatusProcessing, true
	case TransitionPaymentFailed:
		return PaymentStatusFailed, OrderStatusCancelled, true
	default:
		return "", "", false
	}
}

// Allows сообщает, меняет ли переход заказ с текущим статусом оплаты.
// paid терминален: повторное подтверждение ничего не пишет, а отказ его не понижает.
func (t Transition) Allows(current PaymentStatus) bool {
	switch t {
	case TransitionPaymentConfirmed:
		return current != PaymentStatusPaid
	case TransitionPaymentFailed:
		return current == PaymentStatusPending
	default:
		return false
	}
}

// EventType перечисляет события провайдера, которые обрабатывает сервис.
type EventType int

const (
	// EventUnknown обозначает любое другое событие, оно подтверждается без изменений.
	EventUnknown EventType = iota
	EventSessionCompleted
	EventSessionExpired
)

// ParseEventType сопоставляет имя события провайдера с EventType.
func ParseEventType(name string) EventType {
	switch name {
	case "checkout.session.completed":
		return EventSessionCompleted
	case "checkout.session.expired":
		return EventSessionExpired
	default:
		return EventUnknown
	}
}

// String возвращает имя события провайдера.
func (e EventType) String() string {
	switch e {
	case EventSessionCompleted:
		return "checkout.session.completed"
	case EventSessionExpired:
		return "checkout.session.expired"
	default:
		return "unknown"
	}
}

// Event описывает проверенное событие провайдера.
type Event struct {
	ID      string
	Type    EventType
	RawType string
	Session CheckoutSession
}
