package ledger

import (
	"testing"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, time.October, 1, 10, 0, 0, 0, time.UTC)

func proof(id int64, method model.PaymentMethod, status model.ProofStatus, amount int64, minutes int) *model.PaymentProof {
	return &model.PaymentProof{
		ID:         id,
		BookingID:  1,
		Amount:     decimal.NewFromInt(amount),
		Method:     method,
		Status:     status,
		UploadedAt: t0.Add(time.Duration(minutes) * time.Minute),
	}
}

func TestLatest_ResubmissionAfterRejection(t *testing.T) {
	history := []*model.PaymentProof{
		proof(1, model.PaymentMethodGCash, model.ProofStatusRejected, 5000, 0),
		proof(2, model.PaymentMethodBankTransfer, model.ProofStatusPending, 5000, 30),
	}

	status, ok := CurrentStatus(history, TrackOriginal)
	require.True(t, ok)
	assert.Equal(t, model.ProofStatusPending, status)

	_, ok = CurrentStatus(history, TrackBalance)
	assert.False(t, ok)
	assert.False(t, HasBalance(history))
}

func TestLatest_TieBrokenByID(t *testing.T) {
	history := []*model.PaymentProof{
		proof(5, model.PaymentMethodMaya, model.ProofStatusVerified, 100, 0),
		proof(4, model.PaymentMethodMaya, model.ProofStatusRejected, 100, 0),
	}

	assert.Equal(t, int64(5), Latest(history, TrackOriginal).ID)
}

func TestTrackOf(t *testing.T) {
	assert.Equal(t, TrackBalance, TrackOf(model.PaymentMethodCashOnArrival))
	assert.Equal(t, TrackOriginal, TrackOf(model.PaymentMethodGCash))
	assert.Equal(t, TrackOriginal, TrackOf(model.PaymentMethodCreditCard))
}

func TestSummarize(t *testing.T) {
	b := &model.Booking{ID: 1, TotalAmount: decimal.NewFromInt(10000)}

	s := Summarize(b, nil)
	assert.True(t, s.TotalPaid.IsZero())
	assert.True(t, s.RemainingBalance.Equal(decimal.NewFromInt(10000)))

	history := []*model.PaymentProof{
		proof(1, model.PaymentMethodGCash, model.ProofStatusRejected, 5000, 0),
		proof(2, model.PaymentMethodGCash, model.ProofStatusVerified, 5000, 10),
		proof(3, model.PaymentMethodCashOnArrival, model.ProofStatusPending, 3000, 20),
	}
	s = Summarize(b, history)
	assert.True(t, s.TotalPaid.Equal(decimal.NewFromInt(5000)))
	assert.True(t, s.PendingAmount.Equal(decimal.NewFromInt(3000)))
	assert.True(t, s.RemainingBalance.Equal(decimal.NewFromInt(2000)))
}

func TestSummarize_NeverNegative(t *testing.T) {
	b := &model.Booking{ID: 1, TotalAmount: decimal.NewFromInt(1000)}
	history := []*model.PaymentProof{
		proof(1, model.PaymentMethodGCash, model.ProofStatusVerified, 800, 0),
		proof(2, model.PaymentMethodCashOnArrival, model.ProofStatusVerified, 800, 10),
	}

	s := Summarize(b, history)
	assert.True(t, s.RemainingBalance.IsZero())
	assert.True(t, s.TotalPaid.Equal(decimal.NewFromInt(1600)))
}
