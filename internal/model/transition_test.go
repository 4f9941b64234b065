package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionAllows(t *testing.T) {
	tests := []struct {
		name       string
		transition Transition
		current    PaymentStatus
		want       bool
	}{
		{name: "confirm pending", transition: TransitionPaymentConfirmed, current: PaymentStatusPending, want: true},
		{name: "confirm paid", transition: TransitionPaymentConfirmed, current: PaymentStatusPaid, want: false},
		{name: "confirm failed", transition: TransitionPaymentConfirmed, current: PaymentStatusFailed, want: true},
		{name: "fail pending", transition: TransitionPaymentFailed, current: PaymentStatusPending, want: true},
		{name: "fail paid", transition: TransitionPaymentFailed, current: PaymentStatusPaid, want: false},
		{name: "fail failed", transition: TransitionPaymentFailed, current: PaymentStatusFailed, want: false},
		{name: "zero transition", transition: Transition(0), current: PaymentStatusPending, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.transition.Allows(tt.current))
		})
	}
}

func TestTransitionTarget(t *testing.T) {
	ps, st, ok := TransitionPaymentConfirmed.Target()
	assert.True(t, ok)
	assert.Equal(t, PaymentStatusPaid, ps)
	assert.Equal(t, OrderStatusProcessing, st)

	ps, st, ok = TransitionPaymentFailed.Target()
	assert.True(t, ok)
	assert.Equal(t, PaymentStatusFailed, ps)
	assert.Equal(t, OrderStatusCancelled, st)

	_, _, ok = Transition(42).Target()
	assert.False(t, ok)
}

func TestParseEventType(t *testing.T) {
	assert.Equal(t, EventSessionCompleted, ParseEventType("checkout.session.completed"))
	assert.Equal(t, EventSessionExpired, ParseEventType("checkout.session.expired"))
	assert.Equal(t, EventUnknown, ParseEventType("checkout.session.async_payment_succeeded"))
	assert.Equal(t, "checkout.session.expired", EventSessionExpired.String())
}
