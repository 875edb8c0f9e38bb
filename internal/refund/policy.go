// Package refund содержит политики возврата при отмене бронирования.
package refund

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/shopspring/decimal"
)

const (
	PolicyDepositTier    = "deposit_tier"
	PolicyFullAmountTier = "full_amount_tier"
)

// Policy считает возврат по времени до заезда. Текущее время передаётся явно.
type Policy interface {
	Name() string
	Compute(checkIn, now time.Time, total decimal.Decimal) model.RefundDecision
}

// ByName возвращает политику по имени из конфига
func ByName(name string) (Policy, error) {
	switch name {
	case PolicyDepositTier, "":
		return DepositTier{}, nil
	case PolicyFullAmountTier:
		return FullAmountTier{}, nil
	default:
		return nil, fmt.Errorf("unknown refund policy %q", name)
	}
}

// DepositTier возврат от депозита (50% суммы):
// от 48 часов 100%, от 24 до 48 часов 50%, меньше 24 часов отмена запрещена.
type DepositTier struct{}

func (DepositTier) Name() string { return PolicyDepositTier }

func (p DepositTier) Compute(checkIn, now time.Time, total decimal.Decimal) model.RefundDecision {
	base := model.DepositAmount(total, model.PaymentTypeHalf)
	hours := checkIn.Sub(now)

	percentage := 0
	canCancel := true
	switch {
	case hours >= 48*time.Hour:
		percentage = 100
	case hours >= 24*time.Hour:
		percentage = 50
	default:
		canCancel = false
	}

	return model.RefundDecision{
		Policy:     p.Name(),
		Percentage: percentage,
		Amount:     amountOf(base, percentage),
		Base:       base,
		CanCancel:  canCancel,
	}
}

// FullAmountTier возврат от всей суммы по дням до заезда:
// от 60 дней 90%, 30-59 дней 75%, 7-29 дней 50%, меньше 7 дней 25%. Отмена разрешена всегда.
type FullAmountTier struct{}

func (FullAmountTier) Name() string { return PolicyFullAmountTier }

func (p FullAmountTier) Compute(checkIn, now time.Time, total decimal.Decimal) model.RefundDecision {
	days := int(checkIn.Sub(now) / (24 * time.Hour))

	var percentage int
	switch {
	case days >= 60:
		percentage = 90
	case days >= 30:
		percentage = 75
	case days >= 7:
		percentage = 50
	default:
		percentage = 25
	}

	return model.RefundDecision{
		Policy:     p.Name(),
		Percentage: percentage,
		Amount:     amountOf(total, percentage),
		Base:       total,
		CanCancel:  true,
	}
}

// amountOf процент от базы с округлением половины вверх до копеек, в пределах [0, base]
func amountOf(base decimal.Decimal, percentage int) decimal.Decimal {
	if base.IsNegative() {
		return decimal.Zero
	}
	amount := base.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100)).Round(2)
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(base) {
		return base
	}
	return amount
}
