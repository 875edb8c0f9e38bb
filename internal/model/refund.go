package model

import "github.com/shopspring/decimal"

// RefundDecision результат политики возврата, не хранится отдельно
type RefundDecision struct {
	Policy     string          `json:"policy"`
	Percentage int             `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
	Base       decimal.Decimal `json:"base"` // От чего считается процент: депозит или вся сумма
	CanCancel  bool            `json:"can_cancel"`
}
