package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NightRate цена одной ночи
type NightRate struct {
	Date    time.Time       `json:"date"`
	Weekend bool            `json:"weekend"`
	Rate    decimal.Decimal `json:"rate"`
}

// Quote расчёт стоимости проживания
type Quote struct {
	Nights         int             `json:"nights"`
	PerNight       []NightRate     `json:"per_night"`
	BaseTotal      decimal.Decimal `json:"base_total"`
	ExcessGuests   int             `json:"excess_guests"`
	ExcessGuestFee decimal.Decimal `json:"excess_guest_fee"`
	Total          decimal.Decimal `json:"total"`
}
