// Package gateway запрашивает статус онлайн-платежа у внешнего провайдера.
// Сами платежи здесь не проводятся, только сверка.
package gateway

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

// PaymentQuerier статус и полученная сумма платежа по внешнему идентификатору
type PaymentQuerier interface {
	QueryPayment(ctx context.Context, externalID string) (*model.GatewayPayment, error)
}

// Settings параметры подключения к провайдеру
type Settings struct {
	Name           string
	StripeKey      string
	PayPalClientID string
	PayPalSecret   string
	PayPalSandbox  bool
}

// New создаёт клиента по имени провайдера. Пустое имя значит сверки нет.
func New(s Settings) (PaymentQuerier, error) {
	switch s.Name {
	case "":
		return nil, nil
	case "stripe":
		return NewStripe(s.StripeKey, nil), nil
	case "paypal":
		base := PayPalLive
		if s.PayPalSandbox {
			base = PayPalSandbox
		}
		return NewPayPal(s.PayPalClientID, s.PayPalSecret, base)
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", s.Name)
	}
}
