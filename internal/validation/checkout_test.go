package validation

import (
	"errors"
	"math"
	"testing"

	"github.com/mmeshcher/syriamall-payments/internal/model"
)

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{
			name:  "https url",
			value: "https://cdn.example.com/p/1.png",
			valid: true,
		},
		{
			name:  "http url",
			value: "http://cdn.example.com/p/1.png",
			valid: true,
		},
		{
			name:  "relative path",
			value: "/images/1.png",
			valid: false,
		},
		{
			name:  "bucket key",
			value: "products/1.png",
			valid: false,
		},
		{
			name:  "other scheme",
			value: "ftp://cdn.example.com/p/1.png",
			valid: false,
		},
		{
			name:  "scheme without host",
			value: "https://",
			valid: false,
		},
		{
			name:  "empty string",
			value: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsHTTPURL(tt.value)
			if got != tt.valid {
				t.Fatalf("IsHTTPURL(%q) = %v, want %v", tt.value, got, tt.valid)
			}
		})
	}
}

func TestValidateCheckout(t *testing.T) {
	item := model.CheckoutItem{Name: "Soap", Price: 10, Quantity: 1}

	tests := []struct {
		name    string
		req     model.CheckoutRequest
		wantErr error
		invalid bool
	}{
		{
			name: "valid",
			req:  model.CheckoutRequest{OrderID: "ORD-1", Items: []model.CheckoutItem{item}},
		},
		{
			name:    "no items",
			req:     model.CheckoutRequest{OrderID: "ORD-1"},
			wantErr: ErrNoItems,
			invalid: true,
		},
		{
			name:    "no order id",
			req:     model.CheckoutRequest{Items: []model.CheckoutItem{item}},
			wantErr: ErrMissingOrderID,
			invalid: true,
		},
		{
			name: "zero quantity",
			req: model.CheckoutRequest{OrderID: "ORD-1", Items: []model.CheckoutItem{
				{Name: "Soap", Price: 10, Quantity: 0},
			}},
			invalid: true,
		},
		{
			name: "negative price",
			req: model.CheckoutRequest{OrderID: "ORD-1", Items: []model.CheckoutItem{
				{Name: "Soap", Price: -1, Quantity: 1},
			}},
			invalid: true,
		},
		{
			name: "nan price",
			req: model.CheckoutRequest{OrderID: "ORD-1", Items: []model.CheckoutItem{
				{Name: "Soap", Price: math.NaN(), Quantity: 1},
			}},
			invalid: true,
		},
		{
			name: "price beyond int64 minor units",
			req: model.CheckoutRequest{OrderID: "ORD-1", Items: []model.CheckoutItem{
				{Name: "Soap", Price: 1e17, Quantity: 1},
			}},
			invalid: true,
		},
		{
			name: "price above provider limit",
			req: model.CheckoutRequest{OrderID: "ORD-1", Items: []model.CheckoutItem{
				{Name: "Soap", Price: 1000000, Quantity: 1},
			}},
			invalid: true,
		},
		{
			name: "price at provider limit",
			req: model.CheckoutRequest{OrderID: "ORD-1", Items: []model.CheckoutItem{
				{Name: "Soap", Price: 999999.99, Quantity: 1},
			}},
		},
		{
			name: "free item",
			req: model.CheckoutRequest{OrderID: "ORD-1", Items: []model.CheckoutItem{
				{Name: "Sample", Price: 0, Quantity: 1},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCheckout(tt.req)
			if tt.invalid != (err != nil) {
				t.Fatalf("ValidateCheckout() error = %v, invalid = %v", err, tt.invalid)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateCheckout() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
