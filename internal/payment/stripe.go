package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"bibliophile/server/internal/config"
	"bibliophile/server/internal/logging"
)

// stripeProcessor implements Processor using the Stripe PaymentIntents API.
type stripeProcessor struct {
	api *client.API
}

// NewStripeProcessor creates a Stripe-backed Processor. Without a secret key
// every call fails with ErrNotConfigured.
func NewStripeProcessor(cfg *config.Config) Processor {
	if cfg.StripeSecretKey == "" {
		logging.L().Warn("STRIPE_SECRET_KEY not configured, payment intents are disabled")
		return &stripeProcessor{}
	}
	api := &client.API{}
	api.Init(cfg.StripeSecretKey, nil)
	return &stripeProcessor{api: api}
}

func (p *stripeProcessor) CreatePaymentIntent(ctx context.Context, amountMinor int64, currency string) (*Intent, error) {
	if p.api == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(strings.ToLower(currency)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		logging.L().Error("stripe payment intent failed", zap.Int64("amount", amountMinor), zap.String("currency", currency), zap.Error(err))
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}
