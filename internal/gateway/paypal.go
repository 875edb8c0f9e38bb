package gateway

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
)

const (
	PayPalSandbox = paypal.APIBaseSandBox
	PayPalLive    = paypal.APIBaseLive

	payPalCompleted = "COMPLETED"
)

// PayPal сверка по Orders API
type PayPal struct {
	client *paypal.Client
}

// NewPayPal токен доступа запрашивается лениво при первом вызове
func NewPayPal(clientID, secret, apiBase string) (*PayPal, error) {
	client, err := paypal.NewClient(clientID, secret, apiBase)
	if err != nil {
		return nil, fmt.Errorf("create paypal client: %w", err)
	}
	return &PayPal{client: client}, nil
}

func (p *PayPal) QueryPayment(ctx context.Context, externalID string) (*model.GatewayPayment, error) {
	order, err := p.client.GetOrder(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("get paypal order %s: %w", externalID, err)
	}

	payment, err := payPalPayment(order)
	if err != nil {
		return nil, fmt.Errorf("read paypal order %s: %w", externalID, err)
	}
	return payment, nil
}

// payPalPayment сумма только по завершённым захватам, сумма заказа не считается
func payPalPayment(order *paypal.Order) (*model.GatewayPayment, error) {
	payment := &model.GatewayPayment{
		Status: payPalStatus(order.Status),
		Amount: decimal.Zero,
	}

	for _, unit := range order.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, capture := range unit.Payments.Captures {
			if capture.Status != payPalCompleted || capture.Amount == nil {
				continue
			}
			value, err := decimal.NewFromString(capture.Amount.Value)
			if err != nil {
				return nil, fmt.Errorf("parse capture amount %q: %w", capture.Amount.Value, err)
			}
			if payment.Currency != "" && payment.Currency != capture.Amount.Currency {
				return nil, fmt.Errorf("captures in mixed currencies %s and %s", payment.Currency, capture.Amount.Currency)
			}
			payment.Currency = capture.Amount.Currency
			payment.Amount = payment.Amount.Add(value)
		}
	}

	return payment, nil
}

func payPalStatus(status string) model.GatewayStatus {
	switch status {
	case payPalCompleted:
		return model.GatewayStatusPaid
	case "VOIDED":
		return model.GatewayStatusFailed
	default:
		return model.GatewayStatusProcessing
	}
}
