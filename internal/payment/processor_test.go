package payment

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bibliophile/server/internal/config"
)

func TestMinorUnits(t *testing.T) {
	cases := map[float64]int64{
		20:    2000,
		19.99: 1999,
		0.1:   10,
		// Largest chargeable amount.
		999999.99: MaxMinorUnits,
	}
	for price, want := range cases {
		got, err := MinorUnits(price)
		require.NoError(t, err)
		assert.Equal(t, want, got, "price %v", price)
	}
}

func TestMinorUnits_RejectsOutOfRange(t *testing.T) {
	for _, price := range []float64{0, -5, 0.001, math.NaN(), math.Inf(1), 1000000, 9.3e16, 1e17, 1e18, math.MaxFloat64} {
		_, err := MinorUnits(price)
		assert.ErrorIs(t, err, ErrInvalidAmount, "price %v", price)
	}
}

func TestStripeProcessor_NotConfigured(t *testing.T) {
	p := NewStripeProcessor(&config.Config{})
	_, err := p.CreatePaymentIntent(context.Background(), 2000, "usd")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
