package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNotConfigured is returned when no processor secret key was supplied.
	ErrNotConfigured = errors.New("payment processor not configured")
	// ErrInvalidAmount is returned for prices that cannot be charged.
	ErrInvalidAmount = errors.New("invalid payment amount")
)

// Intent is the processor-side handle the client confirms against.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Processor obtains payment intents from an external payment processor.
// Calls carry no idempotency key, so a retried call creates a second intent.
type Processor interface {
	CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string) (*Intent, error)
}

// MaxMinorUnits is the largest amount Stripe accepts for a single charge
// (eight digits, 999999.99 usd).
const MaxMinorUnits = 99999999

// MinorUnits converts a decimal price to the processor's smallest currency unit
// (cents for usd), rounding half away from zero.
func MinorUnits(price float64) (int64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("%w: %v must be a positive amount", ErrInvalidAmount, price)
	}
	minor := math.Round(price * 100)
	if minor < 1 {
		return 0, fmt.Errorf("%w: %v rounds to zero", ErrInvalidAmount, price)
	}
	if minor > MaxMinorUnits {
		return 0, fmt.Errorf("%w: %v exceeds the maximum charge", ErrInvalidAmount, price)
	}
	return int64(minor), nil
}
