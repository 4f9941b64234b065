// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/syriamall-payments/internal/model"
)

// MaxUnitAmount ограничивает цену позиции в минимальных единицах валюты (лимит провайдера).
const MaxUnitAmount = 99999999

var maxUnitAmount = decimal.NewFromInt(MaxUnitAmount)

var (
	// ErrNoItems возвращается для пустого списка позиций.
	ErrNoItems = errors.New("no items provided")
	// ErrMissingOrderID возвращается, если не указан идентификатор заказа.
	ErrMissingOrderID = errors.New("order id is required")
)

// IsHTTPURL проверяет, что значение является абсолютным http или https URL.
func IsHTTPURL(value string) bool {
	if value == "" {
		return false
	}

	u, err := url.Parse(value)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidateCheckout проверяет запрос на открытие платёжной сессии.
func ValidateCheckout(req model.CheckoutRequest) error {
	if strings.TrimSpace(req.OrderID) == "" {
		return ErrMissingOrderID
	}

	if len(req.Items) == 0 {
		return ErrNoItems
	}

	for i, item := range req.Items {
		if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) || item.Price < 0 {
			return fmt.Errorf("item %d: price must be a non-negative number", i)
		}
		if decimal.NewFromFloat(item.Price).Shift(2).Round(0).GreaterThan(maxUnitAmount) {
			return fmt.Errorf("item %d: price exceeds %d minor units", i, MaxUnitAmount)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("item %d: quantity must be at least 1", i)
		}
	}

	return nil
}
