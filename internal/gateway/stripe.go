package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
)

// Stripe сверка по PaymentIntent
type Stripe struct {
	intents *paymentintent.Client
}

// NewStripe backend nil значит боевой API Stripe
func NewStripe(secretKey string, backend stripe.Backend) *Stripe {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &Stripe{intents: &paymentintent.Client{B: backend, Key: secretKey}}
}

func (s *Stripe) QueryPayment(ctx context.Context, externalID string) (*model.GatewayPayment, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := s.intents.Get(externalID, params)
	if err != nil {
		return nil, fmt.Errorf("get stripe payment intent %s: %w", externalID, err)
	}

	return stripePayment(intent), nil
}

// stripePayment amount_received приходит в минимальных единицах валюты
func stripePayment(intent *stripe.PaymentIntent) *model.GatewayPayment {
	return &model.GatewayPayment{
		Status:   stripeStatus(intent.Status),
		Amount:   decimal.New(intent.AmountReceived, -2),
		Currency: strings.ToUpper(string(intent.Currency)),
	}
}

// stripeStatus requires_payment_method у нового намерения и после отказа банка,
// гость ещё может заплатить, поэтому это не провал
func stripeStatus(status stripe.PaymentIntentStatus) model.GatewayStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return model.GatewayStatusPaid
	case stripe.PaymentIntentStatusCanceled:
		return model.GatewayStatusFailed
	default:
		return model.GatewayStatusProcessing
	}
}
