package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/ledger"
	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProofResult итог операции с чеком
type ProofResult struct {
	Proof    *model.PaymentProof `json:"proof"`
	Booking  *model.Booking      `json:"booking"`
	Warnings []string            `json:"warnings,omitempty"`
}

type PaymentService struct {
	tx       Transactor
	bookings BookingStore
	proofs   ProofStore
	notifier Notifier
	logger   *zap.Logger
}

func NewPaymentService(
	tx Transactor,
	bookings BookingStore,
	proofs ProofStore,
	notifier Notifier,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		tx:       tx,
		bookings: bookings,
		proofs:   proofs,
		notifier: notifier,
		logger:   logger,
	}
}

// SubmitProofRequest чек об оплате от гостя
type SubmitProofRequest struct {
	BookingID       int64
	UserID          int64
	Amount          decimal.Decimal
	Method          model.PaymentMethod
	ReferenceNumber string
	Now             time.Time
}

func (r SubmitProofRequest) validate() error {
	if !r.Method.IsValid() {
		return model.Invalid("method", "unknown payment method")
	}
	if !r.Amount.IsPositive() {
		return model.Invalid("amount", "amount must be positive")
	}
	if r.Method.RequiresReference() && strings.TrimSpace(r.ReferenceNumber) == "" {
		return model.Invalid("reference_number", fmt.Sprintf("reference number is required for %s", r.Method))
	}
	return nil
}

// SubmitProof записывает чек гостя.
// Оплата остатка при заезде (cash_on_arrival) подтверждается сразу и закрывает оплату.
func (s *PaymentService) SubmitProof(ctx context.Context, req SubmitProofRequest) (*ProofResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var (
		proof   *model.PaymentProof
		booking *model.Booking
		event   model.EventType
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.bookings.GetByID(ctx, req.BookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if current == nil || current.UserID != req.UserID {
			return model.NotFound("booking", req.BookingID)
		}

		balance := ledger.TrackOf(req.Method) == ledger.TrackBalance
		action := model.ActionSubmitProof
		if balance {
			action = model.ActionPayBalance
		}
		state := current.State()
		if !state.Allows(action) {
			return model.InvalidState(state, model.ErrAlreadyTerminal)
		}

		history, err := s.proofs.ListByBooking(ctx, current.ID)
		if err != nil {
			return fmt.Errorf("list payment proofs: %w", err)
		}

		if balance {
			proof, booking, err = s.recordBalance(ctx, current, history, req)
			event = model.EventBalancePaid
		} else {
			proof, booking, err = s.recordProof(ctx, current, req)
			event = model.EventProofSubmitted
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment proof submitted",
		zap.Int64("proof_id", proof.ID),
		zap.Int64("booking_id", booking.ID),
		zap.String("method", string(proof.Method)),
		zap.String("amount", proof.Amount.StringFixed(2)),
		zap.String("proof_status", string(proof.Status)),
		zap.String("payment_status", string(booking.PaymentStatus)),
	)

	ev := model.NewEvent(event, booking, req.Now)
	ev.Proof = proof
	return &ProofResult{Proof: proof, Booking: booking, Warnings: dispatch(ctx, s.notifier, s.logger, ev)}, nil
}

func (s *PaymentService) recordProof(ctx context.Context, booking *model.Booking, req SubmitProofRequest) (*model.PaymentProof, *model.Booking, error) {
	switch booking.PaymentStatus {
	case model.PaymentStatusPendingVerification:
		return nil, nil, model.Conflict(model.ErrProofUnderReview)
	case model.PaymentStatusVerified, model.PaymentStatusPaid:
		return nil, nil, model.Conflict(model.ErrAlreadyPaid)
	}

	proof := &model.PaymentProof{
		BookingID:       booking.ID,
		UserID:          req.UserID,
		Amount:          req.Amount,
		Method:          req.Method,
		ReferenceNumber: optionalString(req.ReferenceNumber),
		Status:          model.ProofStatusPending,
		UploadedAt:      req.Now,
	}
	if err := s.proofs.Create(ctx, proof); err != nil {
		return nil, nil, fmt.Errorf("create payment proof: %w", err)
	}

	underReview := model.PaymentStatusPendingVerification
	updated, err := s.bookings.Update(ctx, booking.ID, model.BookingPatch{
		PaymentStatus: &underReview,
		ExpectStatus:  []model.BookingStatus{booking.Status},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("update payment status: %w", err)
	}
	if updated == nil {
		return nil, nil, model.Conflict(model.ErrBookingChanged)
	}

	return proof, updated, nil
}

func (s *PaymentService) recordBalance(ctx context.Context, booking *model.Booking, history []*model.PaymentProof, req SubmitProofRequest) (*model.PaymentProof, *model.Booking, error) {
	if booking.PaymentType != model.PaymentTypeHalf {
		return nil, nil, model.Invalid("method", "balance on arrival is only available for half payment bookings")
	}
	if ledger.HasBalance(history) {
		return nil, nil, model.Conflict(model.ErrBalanceAlreadyRecorded)
	}
	if status, ok := ledger.CurrentStatus(history, ledger.TrackOriginal); !ok || status != model.ProofStatusVerified {
		return nil, nil, model.InvalidState(booking.State(), model.ErrDepositNotVerified)
	}

	verifiedAt := req.Now
	proof := &model.PaymentProof{
		BookingID:       booking.ID,
		UserID:          req.UserID,
		Amount:          req.Amount,
		Method:          req.Method,
		ReferenceNumber: optionalString(req.ReferenceNumber),
		Status:          model.ProofStatusVerified,
		UploadedAt:      req.Now,
		VerifiedAt:      &verifiedAt,
	}
	// Параллельный дубль отсечёт уникальный индекс (booking_id) для cash_on_arrival
	if err := s.proofs.Create(ctx, proof); err != nil {
		return nil, nil, fmt.Errorf("create balance proof: %w", err)
	}

	paid := model.PaymentStatusPaid
	total := booking.TotalAmount
	updated, err := s.bookings.Update(ctx, booking.ID, model.BookingPatch{
		PaymentAmount: &total,
		PaymentStatus: &paid,
		ExpectStatus:  []model.BookingStatus{booking.Status},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("update payment status: %w", err)
	}
	if updated == nil {
		return nil, nil, model.Conflict(model.ErrBookingChanged)
	}

	return proof, updated, nil
}

type DecisionAction string

const (
	DecisionApprove DecisionAction = "approve"
	DecisionReject  DecisionAction = "reject"
)

// Decision решение администратора по чеку
type Decision struct {
	Action          DecisionAction
	Notes           string
	RejectionReason model.RejectionReason
}

func (d *Decision) normalize() error {
	switch d.Action {
	case DecisionApprove:
		return nil
	case DecisionReject:
		if d.RejectionReason == "" {
			d.RejectionReason = model.RejectionOther
		}
		if !d.RejectionReason.IsValid() {
			return model.Invalid("rejection_reason", "unknown rejection reason")
		}
		return nil
	default:
		return model.Invalid("action", "action must be approve or reject")
	}
}

// Decide подтверждает или отклоняет чек. Решение принимается ровно один раз:
// повторный вызов возвращает ConflictError.
// Подтверждение чека не подтверждает бронирование, это отдельное действие.
func (s *PaymentService) Decide(ctx context.Context, proofID int64, decision Decision, now time.Time) (*ProofResult, error) {
	if err := decision.normalize(); err != nil {
		return nil, err
	}

	var (
		proof   *model.PaymentProof
		booking *model.Booking
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.proofs.GetByID(ctx, proofID)
		if err != nil {
			return fmt.Errorf("get payment proof: %w", err)
		}
		if current == nil {
			return model.NotFound("payment proof", proofID)
		}
		if current.Status != model.ProofStatusPending {
			return model.Conflict(model.ErrProofAlreadyDecided)
		}

		owner, err := s.bookings.GetByID(ctx, current.BookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if owner == nil {
			return model.NotFound("booking", current.BookingID)
		}
		state := owner.State()
		if !state.Allows(model.ActionDecideProof) {
			return model.InvalidState(state, model.ErrAlreadyTerminal)
		}

		pending := model.ProofStatusPending
		patch := model.ProofPatch{ExpectStatus: &pending}
		var paymentStatus model.PaymentStatus

		if decision.Action == DecisionApprove {
			verified := model.ProofStatusVerified
			patch.Status = &verified
			patch.VerifiedAt = &now
			if notes := strings.TrimSpace(decision.Notes); notes != "" {
				patch.AdminNotes = &notes
			}
			paymentStatus = model.PaymentStatusVerified
		} else {
			rejected := model.ProofStatusRejected
			notes := model.EncodeRejectionNotes(decision.RejectionReason, decision.Notes)
			patch.Status = &rejected
			patch.AdminNotes = &notes
			paymentStatus = model.PaymentStatusRejected
		}

		proof, err = s.proofs.Update(ctx, proofID, patch)
		if err != nil {
			return fmt.Errorf("update payment proof: %w", err)
		}
		if proof == nil {
			return model.Conflict(model.ErrProofAlreadyDecided)
		}

		booking, err = s.bookings.Update(ctx, owner.ID, model.BookingPatch{
			PaymentStatus: &paymentStatus,
			ExpectStatus:  []model.BookingStatus{owner.Status},
		})
		if err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		if booking == nil {
			return model.Conflict(model.ErrBookingChanged)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment proof decided",
		zap.Int64("proof_id", proofID),
		zap.Int64("booking_id", booking.ID),
		zap.String("action", string(decision.Action)),
		zap.String("payment_status", string(booking.PaymentStatus)),
		zap.String("booking_status", string(booking.Status)),
	)

	eventType := model.EventPaymentVerified
	if decision.Action == DecisionReject {
		eventType = model.EventPaymentRejected
	}
	ev := model.NewEvent(eventType, booking, now)
	ev.Proof = proof
	if decision.Action == DecisionReject {
		ev.Extra["rejection_reason"] = string(decision.RejectionReason)
	}

	return &ProofResult{Proof: proof, Booking: booking, Warnings: dispatch(ctx, s.notifier, s.logger, ev)}, nil
}

// Summarize итоги оплат бронирования
func (s *PaymentService) Summarize(ctx context.Context, bookingID int64) (*ledger.Summary, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, model.NotFound("booking", bookingID)
	}
	return s.summarize(ctx, booking)
}

// SummarizeForGuest итоги оплат с проверкой владельца
func (s *PaymentService) SummarizeForGuest(ctx context.Context, bookingID, userID int64) (*ledger.Summary, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil || booking.UserID != userID {
		return nil, model.NotFound("booking", bookingID)
	}
	return s.summarize(ctx, booking)
}

func (s *PaymentService) summarize(ctx context.Context, booking *model.Booking) (*ledger.Summary, error) {
	history, err := s.proofs.ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("list payment proofs: %w", err)
	}
	summary := ledger.Summarize(booking, history)
	return &summary, nil
}

// History все чеки бронирования гостя по времени отправки
func (s *PaymentService) History(ctx context.Context, bookingID, userID int64) ([]*model.PaymentProof, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil || booking.UserID != userID {
		return nil, model.NotFound("booking", bookingID)
	}
	return s.proofs.ListByBooking(ctx, bookingID)
}

// ListPending чеки, ожидающие проверки
func (s *PaymentService) ListPending(ctx context.Context) ([]*model.PaymentProof, error) {
	return s.proofs.ListPending(ctx)
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
