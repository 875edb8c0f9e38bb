package service

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proofRequest(b *model.Booking, amount int64, method model.PaymentMethod, ref string) SubmitProofRequest {
	return SubmitProofRequest{
		BookingID:       b.ID,
		UserID:          b.UserID,
		Amount:          decimal.NewFromInt(amount),
		Method:          method,
		ReferenceNumber: ref,
		Now:             testNow,
	}
}

func TestPaymentFlow_DepositThenBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12)})

	submitted, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodGCash, "GC-100234"))
	require.NoError(t, err)
	assert.Equal(t, model.ProofStatusPending, submitted.Proof.Status)
	assert.Equal(t, model.StatePaymentUnderReview, submitted.Booking.State())

	summary, err := f.payment.Summarize(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(summary.PendingAmount))
	assert.True(t, decimal.NewFromInt(5000).Equal(summary.RemainingBalance))

	decided, err := f.payment.Decide(ctx, submitted.Proof.ID, Decision{Action: DecisionApprove}, testNow)
	require.NoError(t, err)
	assert.Equal(t, model.ProofStatusVerified, decided.Proof.Status)
	require.NotNil(t, decided.Proof.VerifiedAt)
	assert.Equal(t, model.StatePaymentVerifiedPendingConfirmation, decided.Booking.State())

	summary, err = f.payment.Summarize(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(summary.TotalPaid))
	assert.True(t, decimal.NewFromInt(5000).Equal(summary.RemainingBalance))

	_, err = f.booking.Confirm(ctx, b.ID, testNow)
	require.NoError(t, err)

	balance, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodCashOnArrival, ""))
	require.NoError(t, err)
	assert.Equal(t, model.ProofStatusVerified, balance.Proof.Status)
	assert.Equal(t, model.PaymentStatusPaid, balance.Booking.PaymentStatus)
	assert.True(t, decimal.NewFromInt(10000).Equal(balance.Booking.PaymentAmount))

	summary, err = f.payment.SummarizeForGuest(ctx, b.ID, b.UserID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10000).Equal(summary.TotalPaid))
	assert.True(t, summary.RemainingBalance.IsZero())

	_, err = f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodCashOnArrival, ""))
	require.Error(t, err)
	assert.True(t, model.IsConflict(err))
	assert.ErrorIs(t, err, model.ErrBalanceAlreadyRecorded)

	assert.Equal(t, []model.EventType{
		model.EventProofSubmitted,
		model.EventPaymentVerified,
		model.EventBookingConfirmed,
		model.EventBalancePaid,
	}, f.notifier.types())
}

func TestSubmitProof_Validation(t *testing.T) {
	f := newFixture()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12)})

	cases := []struct {
		name  string
		req   SubmitProofRequest
		field string
	}{
		{"missing reference", proofRequest(b, 5000, model.PaymentMethodMaya, " "), "reference_number"},
		{"zero amount", proofRequest(b, 0, model.PaymentMethodGCash, "GC-1"), "amount"},
		{"unknown method", proofRequest(b, 5000, "crypto", "x"), "method"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.payment.SubmitProof(context.Background(), tc.req)
			require.Error(t, err)

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	assert.Empty(t, f.proofs.rows)
}

func TestSubmitProof_CreditCardWithoutReference(t *testing.T) {
	f := newFixture()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12)})

	res, err := f.payment.SubmitProof(context.Background(), proofRequest(b, 5000, model.PaymentMethodCreditCard, ""))
	require.NoError(t, err)
	assert.Nil(t, res.Proof.ReferenceNumber)
}

func TestSubmitProof_UnderReviewAndResubmit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12)})

	first, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodBankTransfer, "BDO-1"))
	require.NoError(t, err)

	_, err = f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodBankTransfer, "BDO-2"))
	assert.ErrorIs(t, err, model.ErrProofUnderReview)

	rejected, err := f.payment.Decide(ctx, first.Proof.ID, Decision{
		Action:          DecisionReject,
		RejectionReason: model.RejectionAmountMismatch,
		Notes:           "sent 4500 only",
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, model.StatePaymentRejected, rejected.Booking.State())
	reason, notes, ok := model.ParseRejectionNotes(*rejected.Proof.AdminNotes)
	require.True(t, ok)
	assert.Equal(t, model.RejectionAmountMismatch, reason)
	assert.Equal(t, "sent 4500 only", notes)

	again, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodBankTransfer, "BDO-3"))
	require.NoError(t, err)
	assert.Equal(t, model.StatePaymentUnderReview, again.Booking.State())

	history, err := f.payment.History(ctx, b.ID, b.UserID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.ProofStatusRejected, history[0].Status)
	assert.Equal(t, model.ProofStatusPending, history[1].Status)

	summary, err := f.payment.Summarize(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(summary.PendingAmount))
	assert.True(t, summary.TotalPaid.IsZero())
}

func TestSubmitProof_AlreadyPaid(t *testing.T) {
	f := newFixture()
	b := f.seed(model.Booking{
		CheckIn:       date(10, 20, 14),
		CheckOut:      date(10, 22, 12),
		PaymentStatus: model.PaymentStatusVerified,
	})

	_, err := f.payment.SubmitProof(context.Background(), proofRequest(b, 5000, model.PaymentMethodGCash, "GC-7"))
	assert.ErrorIs(t, err, model.ErrAlreadyPaid)
}

func TestSubmitProof_BalanceBeforeDeposit(t *testing.T) {
	f := newFixture()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12)})

	_, err := f.payment.SubmitProof(context.Background(), proofRequest(b, 5000, model.PaymentMethodCashOnArrival, ""))
	require.Error(t, err)
	assert.True(t, model.IsInvalidState(err))
	assert.ErrorIs(t, err, model.ErrDepositNotVerified)
}

func TestSubmitProof_BalanceOnFullPayment(t *testing.T) {
	f := newFixture()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12), PaymentType: model.PaymentTypeFull})

	_, err := f.payment.SubmitProof(context.Background(), proofRequest(b, 5000, model.PaymentMethodCashOnArrival, ""))
	assert.True(t, model.IsValidation(err))
}

func TestSubmitProof_Ownership(t *testing.T) {
	f := newFixture()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12)})

	req := proofRequest(b, 5000, model.PaymentMethodGCash, "GC-1")
	req.UserID = 99
	_, err := f.payment.SubmitProof(context.Background(), req)
	assert.True(t, model.IsNotFound(err))

	_, err = f.payment.History(context.Background(), b.ID, 99)
	assert.True(t, model.IsNotFound(err))
}

func TestSubmitProof_CancelledBooking(t *testing.T) {
	f := newFixture()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12), Status: model.BookingStatusCancelled})

	_, err := f.payment.SubmitProof(context.Background(), proofRequest(b, 5000, model.PaymentMethodGCash, "GC-1"))
	assert.True(t, model.IsInvalidState(err))
	assert.Empty(t, f.proofs.rows)
}

func TestDecide_OnlyOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12)})

	submitted, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodGCash, "GC-1"))
	require.NoError(t, err)

	_, err = f.payment.Decide(ctx, submitted.Proof.ID, Decision{Action: DecisionApprove}, testNow)
	require.NoError(t, err)

	_, err = f.payment.Decide(ctx, submitted.Proof.ID, Decision{Action: DecisionReject}, testNow)
	require.Error(t, err)
	assert.True(t, model.IsConflict(err))
	assert.ErrorIs(t, err, model.ErrProofAlreadyDecided)

	stored, _ := f.proofs.GetByID(ctx, submitted.Proof.ID)
	assert.Equal(t, model.ProofStatusVerified, stored.Status)
}

func TestDecide_RejectDefaultsReason(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12)})

	submitted, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodGCash, "GC-1"))
	require.NoError(t, err)

	res, err := f.payment.Decide(ctx, submitted.Proof.ID, Decision{Action: DecisionReject}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "rejected:other", *res.Proof.AdminNotes)
	assert.Equal(t, "other", f.notifier.events[len(f.notifier.events)-1].Extra["rejection_reason"])
}

func TestDecide_InvalidInput(t *testing.T) {
	f := newFixture()

	_, err := f.payment.Decide(context.Background(), 1, Decision{Action: "maybe"}, testNow)
	assert.True(t, model.IsValidation(err))

	_, err = f.payment.Decide(context.Background(), 1, Decision{Action: DecisionReject, RejectionReason: "blurry"}, testNow)
	assert.True(t, model.IsValidation(err))

	_, err = f.payment.Decide(context.Background(), 404, Decision{Action: DecisionApprove}, testNow)
	assert.True(t, model.IsNotFound(err))
}

func TestDecide_CancelledBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.seed(model.Booking{CheckIn: testNow.Add(72 * time.Hour), CheckOut: testNow.Add(96 * time.Hour)})

	submitted, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodGCash, "GC-1"))
	require.NoError(t, err)
	_, err = f.booking.CancelByAdmin(ctx, b.ID, "", testNow)
	require.NoError(t, err)

	_, err = f.payment.Decide(ctx, submitted.Proof.ID, Decision{Action: DecisionApprove}, testNow)
	assert.True(t, model.IsInvalidState(err))

	pending, err := f.payment.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestDecide_NotificationFailureIsWarning(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.seed(model.Booking{CheckIn: date(10, 20, 14), CheckOut: date(10, 22, 12)})

	submitted, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodGCash, "GC-1"))
	require.NoError(t, err)

	f.notifier.err = errNotifierDown
	res, err := f.payment.Decide(ctx, submitted.Proof.ID, Decision{Action: DecisionApprove}, testNow)
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
	assert.Equal(t, model.PaymentStatusVerified, res.Booking.PaymentStatus)
}

func TestCompletedBooking_OnlyAcceptsBalance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.seed(model.Booking{
		CheckIn:       date(10, 10, 14),
		CheckOut:      date(10, 12, 12),
		Status:        model.BookingStatusCompleted,
		PaymentStatus: model.PaymentStatusPending,
	})
	for _, method := range []model.PaymentMethod{
		model.PaymentMethodGCash, model.PaymentMethodMaya, model.PaymentMethodBankTransfer, model.PaymentMethodCreditCard,
	} {
		_, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, method, "REF1"))
		require.Error(t, err, method)
		assert.True(t, model.IsInvalidState(err), method)
		assert.ErrorIs(t, err, model.ErrAlreadyTerminal)
	}
	assert.Empty(t, f.proofs.rows)

	stored, _ := f.bookings.GetByID(ctx, b.ID)
	assert.Equal(t, model.PaymentStatusPending, stored.PaymentStatus)
}

func TestDecide_CompletedBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := f.seed(model.Booking{
		CheckIn:       date(10, 12, 14),
		CheckOut:      date(10, 14, 12),
		Status:        model.BookingStatusConfirmed,
		PaymentStatus: model.PaymentStatusPending,
	})

	submitted, err := f.payment.SubmitProof(ctx, proofRequest(b, 5000, model.PaymentMethodGCash, "GC-1"))
	require.NoError(t, err)
	_, err = f.sweeper.Sweep(ctx, testNow)
	require.NoError(t, err)

	_, err = f.payment.Decide(ctx, submitted.Proof.ID, Decision{Action: DecisionApprove}, testNow)
	require.Error(t, err)
	assert.True(t, model.IsInvalidState(err))

	stored, _ := f.bookings.GetByID(ctx, b.ID)
	assert.Equal(t, model.BookingStatusCompleted, stored.Status)
	assert.Equal(t, model.PaymentStatusPendingVerification, stored.PaymentStatus)
	proof, _ := f.proofs.GetByID(ctx, submitted.Proof.ID)
	assert.Equal(t, model.ProofStatusPending, proof.Status)
}
