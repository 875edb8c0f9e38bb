package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency валюта всех сумм площадки
const Currency = "PHP"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает подтверждения администратором
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено (терминальный)
	BookingStatusCompleted BookingStatus = "completed" // Проживание завершено (терминальный)
)

// ActiveBookingStatuses статусы, которые занимают даты в календаре
var ActiveBookingStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// IsActive сообщает, блокирует ли бронирование свои даты
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

type PaymentStatus string

const (
	PaymentStatusPending             PaymentStatus = "pending"              // Ждём оплату
	PaymentStatusPendingVerification PaymentStatus = "pending_verification" // Чек отправлен, ждёт проверки
	PaymentStatusVerified            PaymentStatus = "verified"             // Чек подтверждён
	PaymentStatusRejected            PaymentStatus = "rejected"             // Чек отклонён, можно отправить заново
	PaymentStatusPaid                PaymentStatus = "paid"                 // Оплачено полностью
	PaymentStatusFailed              PaymentStatus = "failed"               // Платёж в шлюзе не прошёл
)

type PaymentType string

const (
	PaymentTypeHalf PaymentType = "half" // Предоплата 50%, остаток при заезде
	PaymentTypeFull PaymentType = "full"
)

// IsValid проверяет тип оплаты
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeHalf || t == PaymentTypeFull
}

type Booking struct {
	ID                 int64            `json:"id"`
	UserID             int64            `json:"user_id"`
	GuestName          string           `json:"guest_name"`
	GuestEmail         string           `json:"guest_email"`
	GuestPhone         string           `json:"guest_phone"`
	CheckIn            time.Time        `json:"check_in"`
	CheckOut           time.Time        `json:"check_out"`
	GuestCount         int              `json:"guest_count"`
	TotalAmount        decimal.Decimal  `json:"total_amount"`
	PaymentType        PaymentType      `json:"payment_type"`
	PaymentAmount      decimal.Decimal  `json:"payment_amount"` // Сумма к оплате сейчас (депозит или всё)
	Status             BookingStatus    `json:"status"`
	PaymentStatus      PaymentStatus    `json:"payment_status"`
	ExternalPaymentID  *string          `json:"external_payment_id,omitempty"`
	CancelledBy        *string          `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	CancellationReason *string          `json:"cancellation_reason,omitempty"`
	RefundAmount       *decimal.Decimal `json:"refund_amount,omitempty"`
	RefundPercentage   *int             `json:"refund_percentage,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// State возвращает объединённое состояние бронирования
func (b *Booking) State() State {
	return StateOf(b.Status, b.PaymentStatus)
}

// DepositAmount сумма, которую нужно внести при бронировании
func DepositAmount(total decimal.Decimal, paymentType PaymentType) decimal.Decimal {
	if paymentType == PaymentTypeHalf {
		return total.Div(decimal.NewFromInt(2)).Round(2)
	}
	return total
}

// Кто отменил бронирование
const (
	CancelledByGuest = "guest"
	CancelledByAdmin = "admin"
)

// BookingPatch частичное обновление бронирования.
// Поля nil не меняются. ExpectStatus проверяется в том же UPDATE.
type BookingPatch struct {
	CheckIn            *time.Time
	CheckOut           *time.Time
	GuestCount         *int
	TotalAmount        *decimal.Decimal
	PaymentAmount      *decimal.Decimal
	Status             *BookingStatus
	PaymentStatus      *PaymentStatus
	ExternalPaymentID  *string
	CancelledBy        *string
	CancelledAt        *time.Time
	CancellationReason *string
	RefundAmount       *decimal.Decimal
	RefundPercentage   *int

	ExpectStatus []BookingStatus
}

// Matches проверяет условие ExpectStatus
func (p BookingPatch) Matches(b *Booking) bool {
	if len(p.ExpectStatus) == 0 {
		return true
	}
	for _, s := range p.ExpectStatus {
		if b.Status == s {
			return true
		}
	}
	return false
}

// Apply применяет патч к копии бронирования
func (p BookingPatch) Apply(b *Booking) *Booking {
	out := *b
	if p.CheckIn != nil {
		out.CheckIn = *p.CheckIn
	}
	if p.CheckOut != nil {
		out.CheckOut = *p.CheckOut
	}
	if p.GuestCount != nil {
		out.GuestCount = *p.GuestCount
	}
	if p.TotalAmount != nil {
		out.TotalAmount = *p.TotalAmount
	}
	if p.PaymentAmount != nil {
		out.PaymentAmount = *p.PaymentAmount
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.PaymentStatus != nil {
		out.PaymentStatus = *p.PaymentStatus
	}
	if p.ExternalPaymentID != nil {
		out.ExternalPaymentID = p.ExternalPaymentID
	}
	if p.CancelledBy != nil {
		out.CancelledBy = p.CancelledBy
	}
	if p.CancelledAt != nil {
		out.CancelledAt = p.CancelledAt
	}
	if p.CancellationReason != nil {
		out.CancellationReason = p.CancellationReason
	}
	if p.RefundAmount != nil {
		out.RefundAmount = p.RefundAmount
	}
	if p.RefundPercentage != nil {
		out.RefundPercentage = p.RefundPercentage
	}
	return &out
}

// StartOfDay обрезает время до начала суток в той же локации
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
