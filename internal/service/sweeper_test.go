package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	yesterday := f.seed(model.Booking{CheckIn: date(10, 12, 14), CheckOut: date(10, 14, 12), Status: model.BookingStatusConfirmed})
	today := f.seed(model.Booking{CheckIn: date(10, 13, 14), CheckOut: date(10, 15, 12), Status: model.BookingStatusConfirmed})
	tomorrow := f.seed(model.Booking{CheckIn: date(10, 15, 14), CheckOut: date(10, 16, 12), Status: model.BookingStatusConfirmed})
	unconfirmed := f.seed(model.Booking{CheckIn: date(10, 10, 14), CheckOut: date(10, 11, 12)})

	n, err := f.sweeper.Sweep(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for id, want := range map[int64]model.BookingStatus{
		yesterday.ID:   model.BookingStatusCompleted,
		today.ID:       model.BookingStatusCompleted,
		tomorrow.ID:    model.BookingStatusConfirmed,
		unconfirmed.ID: model.BookingStatusPending,
	} {
		b, err := f.bookings.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, b.Status, "booking %d", id)
	}

	// Повторный запуск в тот же день ничего не меняет
	n, err = f.sweeper.Sweep(ctx, testNow)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, []model.EventType{model.EventBookingCompleted, model.EventBookingCompleted}, f.notifier.types())
}

func TestSweep_CompletedStillAcceptsBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.seed(model.Booking{
		CheckIn:       date(10, 12, 14),
		CheckOut:      date(10, 14, 12),
		Status:        model.BookingStatusConfirmed,
		PaymentStatus: model.PaymentStatusVerified,
	})
	require.NoError(t, f.proofs.Create(ctx, &model.PaymentProof{
		BookingID:  b.ID,
		UserID:     b.UserID,
		Amount:     b.PaymentAmount,
		Method:     model.PaymentMethodGCash,
		Status:     model.ProofStatusVerified,
		UploadedAt: date(10, 1, 9),
	}))

	_, err := f.sweeper.Sweep(ctx, testNow)
	require.NoError(t, err)

	res, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodCashOnArrival, ""))
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, res.Booking.Status)
	assert.Equal(t, model.PaymentStatusPaid, res.Booking.PaymentStatus)

	_, err = f.booking.CancelByAdmin(ctx, b.ID, "", testNow)
	assert.True(t, model.IsInvalidState(err))
}
