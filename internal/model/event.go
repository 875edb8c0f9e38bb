package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventBookingCreated     EventType = "booking_created"
	EventBookingConfirmed   EventType = "booking_confirmed"
	EventBookingCancelled   EventType = "booking_cancelled"
	EventBookingRescheduled EventType = "booking_rescheduled"
	EventBookingCompleted   EventType = "booking_completed"
	EventProofSubmitted     EventType = "payment_proof_submitted"
	EventPaymentVerified    EventType = "payment_verified"
	EventPaymentRejected    EventType = "payment_rejected"
	EventBalancePaid        EventType = "balance_paid"
	EventGatewayPaid        EventType = "gateway_payment_paid"
	EventGatewayFailed      EventType = "gateway_payment_failed"
	EventCheckInReminder    EventType = "check_in_reminder"
)

// Event уведомление о переходе, отправляется внешним каналам
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       EventType         `json:"type"`
	Booking    *Booking          `json:"booking"`
	Proof      *PaymentProof     `json:"proof,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewEvent создаёт событие с новым ID
func NewEvent(eventType EventType, booking *Booking, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Booking:    booking,
		Extra:      map[string]string{},
		OccurredAt: at,
	}
}

// GatewayStatus статус платежа во внешнем шлюзе
type GatewayStatus string

const (
	GatewayStatusPaid       GatewayStatus = "paid"
	GatewayStatusFailed     GatewayStatus = "failed"
	GatewayStatusProcessing GatewayStatus = "processing"
)

// GatewayPayment платёж в шлюзе: статус и фактически полученная сумма
type GatewayPayment struct {
	Status   GatewayStatus
	Amount   decimal.Decimal
	Currency string
}

// Covers сообщает, покрывает ли полученная сумма due в валюте площадки.
// Пустая валюта означает, что шлюз её не сообщил.
func (p GatewayPayment) Covers(due decimal.Decimal) bool {
	if p.Currency != "" && p.Currency != Currency {
		return false
	}
	return p.Amount.GreaterThanOrEqual(due)
}
