// Package pricing считает стоимость проживания по датам и числу гостей.
package pricing

import (
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/shopspring/decimal"
)

// Значения по умолчанию, переопределяются конфигом
var (
	DefaultWeekdayRate    = decimal.NewFromInt(9000)
	DefaultWeekendRate    = decimal.NewFromInt(12000)
	DefaultExcessGuestFee = decimal.NewFromInt(300)
)

const DefaultIncludedGuests = 15

// Calculator тарифная сетка площадки
type Calculator struct {
	WeekdayRate    decimal.Decimal
	WeekendRate    decimal.Decimal
	IncludedGuests int
	ExcessGuestFee decimal.Decimal // За каждого гостя сверх нормы за ночь
}

// NewCalculator создаёт калькулятор с заданными тарифами
func NewCalculator(weekday, weekend decimal.Decimal, includedGuests int, excessGuestFee decimal.Decimal) *Calculator {
	return &Calculator{
		WeekdayRate:    weekday,
		WeekendRate:    weekend,
		IncludedGuests: includedGuests,
		ExcessGuestFee: excessGuestFee,
	}
}

// NewDefaultCalculator калькулятор с тарифами по умолчанию
func NewDefaultCalculator() *Calculator {
	return NewCalculator(DefaultWeekdayRate, DefaultWeekendRate, DefaultIncludedGuests, DefaultExcessGuestFee)
}

// Price считает стоимость ночей [checkIn, checkOut).
// Ночь субботы и воскресенья идёт по тарифу выходного дня.
func (c *Calculator) Price(checkIn, checkOut time.Time, guests int) (*model.Quote, error) {
	if !checkOut.After(checkIn) {
		return nil, model.Invalid("check_out", "check-out must be after check-in")
	}
	if guests < 1 {
		return nil, model.Invalid("guest_count", "at least one guest is required")
	}

	nights := Nights(checkIn, checkOut)

	quote := &model.Quote{
		Nights:         len(nights),
		PerNight:       make([]model.NightRate, 0, len(nights)),
		BaseTotal:      decimal.Zero,
		ExcessGuestFee: decimal.Zero,
	}

	for _, night := range nights {
		weekend := IsWeekendNight(night)
		rate := c.WeekdayRate
		if weekend {
			rate = c.WeekendRate
		}
		quote.PerNight = append(quote.PerNight, model.NightRate{Date: night, Weekend: weekend, Rate: rate})
		quote.BaseTotal = quote.BaseTotal.Add(rate)
	}

	if guests > c.IncludedGuests {
		quote.ExcessGuests = guests - c.IncludedGuests
		quote.ExcessGuestFee = c.ExcessGuestFee.
			Mul(decimal.NewFromInt(int64(quote.ExcessGuests))).
			Mul(decimal.NewFromInt(int64(quote.Nights)))
	}

	quote.Total = quote.BaseTotal.Add(quote.ExcessGuestFee)
	return quote, nil
}

// Nights возвращает начало каждой ночи между датами заезда и выезда.
// Выезд в тот же календарный день считается одной ночью.
func Nights(checkIn, checkOut time.Time) []time.Time {
	start := model.StartOfDay(checkIn)
	end := model.StartOfDay(checkOut.In(checkIn.Location()))

	var nights []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d)
	}
	if len(nights) == 0 {
		nights = append(nights, start)
	}
	return nights
}

// IsWeekendNight ночь с субботы или с воскресенья
func IsWeekendNight(night time.Time) bool {
	wd := night.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
