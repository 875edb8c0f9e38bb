// Package ledger выводит состояние оплаты из истории чеков бронирования.
// История только дополняется: повторная отправка после отклонения создаёт новую запись.
package ledger

import (
	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/shopspring/decimal"
)

// Track категория платежа
type Track string

const (
	TrackOriginal Track = "original" // Депозит или полная оплата
	TrackBalance  Track = "balance"  // Остаток при заезде
)

// TrackOf определяет категорию по методу оплаты
func TrackOf(method model.PaymentMethod) Track {
	if method == model.PaymentMethodCashOnArrival {
		return TrackBalance
	}
	return TrackOriginal
}

// Latest последний чек в категории или nil
func Latest(proofs []*model.PaymentProof, track Track) *model.PaymentProof {
	var latest *model.PaymentProof
	for _, p := range proofs {
		if p == nil || TrackOf(p.Method) != track {
			continue
		}
		if latest == nil || newer(p, latest) {
			latest = p
		}
	}
	return latest
}

func newer(a, b *model.PaymentProof) bool {
	if a.UploadedAt.Equal(b.UploadedAt) {
		return a.ID > b.ID
	}
	return a.UploadedAt.After(b.UploadedAt)
}

// CurrentStatus статус последнего чека в категории
func CurrentStatus(proofs []*model.PaymentProof, track Track) (model.ProofStatus, bool) {
	latest := Latest(proofs, track)
	if latest == nil {
		return "", false
	}
	return latest.Status, true
}

// HasBalance есть ли уже запись об оплате остатка
func HasBalance(proofs []*model.PaymentProof) bool {
	return Latest(proofs, TrackBalance) != nil
}

// Summary итоги по оплатам бронирования
type Summary struct {
	BookingID        int64           `json:"booking_id"`
	Total            decimal.Decimal `json:"total"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	PendingAmount    decimal.Decimal `json:"pending_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// Summarize считает оплачено / на проверке / остаток.
// Отклонённые чеки не учитываются, остаток не бывает отрицательным.
func Summarize(booking *model.Booking, proofs []*model.PaymentProof) Summary {
	paid := decimal.Zero
	pending := decimal.Zero

	for _, p := range proofs {
		if p == nil {
			continue
		}
		switch p.Status {
		case model.ProofStatusVerified:
			paid = paid.Add(p.Amount)
		case model.ProofStatusPending:
			pending = pending.Add(p.Amount)
		}
	}

	remaining := booking.TotalAmount.Sub(paid).Sub(pending)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Summary{
		BookingID:        booking.ID,
		Total:            booking.TotalAmount,
		TotalPaid:        paid,
		PendingAmount:    pending,
		RemainingBalance: remaining,
	}
}
