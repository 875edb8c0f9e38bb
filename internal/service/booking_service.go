package service

import (
	"context"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/conflict"
	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/pricing"
	"github.com/Freeeeeet/venue_booking/internal/refund"
	"go.uber.org/zap"
)

// Подтверждённое бронирование нельзя переносить ближе чем за сутки до заезда
const rescheduleNoticeForConfirmed = 24 * time.Hour

// Result итог перехода. Warnings содержит неотправленные уведомления.
type Result struct {
	Booking  *model.Booking        `json:"booking"`
	Refund   *model.RefundDecision `json:"refund,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
}

type BookingService struct {
	bookings BookingStore
	detector *conflict.Detector
	pricing  *pricing.Calculator
	refunds  refund.Policy
	locker   Locker
	notifier Notifier
	gateway  GatewayQuerier
	logger   *zap.Logger
}

func NewBookingService(
	bookings BookingStore,
	calculator *pricing.Calculator,
	refunds refund.Policy,
	locker Locker,
	notifier Notifier,
	gateway GatewayQuerier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		detector: conflict.NewDetector(bookings),
		pricing:  calculator,
		refunds:  refunds,
		locker:   locker,
		notifier: notifier,
		gateway:  gateway,
		logger:   logger,
	}
}

// CreateBookingRequest заявка гостя
type CreateBookingRequest struct {
	UserID            int64
	GuestName         string
	GuestEmail        string
	GuestPhone        string
	CheckIn           time.Time
	CheckOut          time.Time
	GuestCount        int
	PaymentType       model.PaymentType
	Now               time.Time
}

func (r CreateBookingRequest) validate() error {
	if r.UserID <= 0 {
		return model.Invalid("user_id", "guest account is required")
	}
	if strings.TrimSpace(r.GuestName) == "" {
		return model.Invalid("guest_name", "guest name is required")
	}
	if _, err := mail.ParseAddress(r.GuestEmail); err != nil {
		return model.Invalid("guest_email", "guest email is invalid")
	}
	if !r.PaymentType.IsValid() {
		return model.Invalid("payment_type", "payment type must be half or full")
	}
	return nil
}

// Quote считает стоимость без создания бронирования
func (s *BookingService) Quote(checkIn, checkOut time.Time, guests int) (*model.Quote, error) {
	return s.pricing.Price(checkIn, checkOut, guests)
}

// Create создаёт бронирование в статусе pending/pending
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	quote, err := s.pricing.Price(req.CheckIn, req.CheckOut, req.GuestCount)
	if err != nil {
		return nil, err
	}

	if req.CheckIn.Before(model.StartOfDay(req.Now)) {
		return nil, model.Invalid("check_in", "check-in cannot be in the past")
	}

	booking := &model.Booking{
		UserID:            req.UserID,
		GuestName:         strings.TrimSpace(req.GuestName),
		GuestEmail:        strings.TrimSpace(req.GuestEmail),
		GuestPhone:        strings.TrimSpace(req.GuestPhone),
		CheckIn:           req.CheckIn,
		CheckOut:          req.CheckOut,
		GuestCount:        req.GuestCount,
		TotalAmount:       quote.Total,
		PaymentType:       req.PaymentType,
		PaymentAmount:     model.DepositAmount(quote.Total, req.PaymentType),
		Status:            model.BookingStatusPending,
		PaymentStatus:     model.PaymentStatusPending,
	}

	err = withLock(ctx, s.locker, CalendarLockKey, func() error {
		busy, err := s.detector.Check(ctx, req.CheckIn, req.CheckOut, 0)
		if err != nil {
			return fmt.Errorf("check conflicts: %w", err)
		}
		if busy {
			return model.Conflict(model.ErrDatesUnavailable)
		}

		// Пересечение, появившееся после проверки, отсечёт ограничение в БД
		if err := s.bookings.Create(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", booking.UserID),
		zap.Time("check_in", booking.CheckIn),
		zap.Time("check_out", booking.CheckOut),
		zap.Int("nights", quote.Nights),
		zap.String("total", booking.TotalAmount.StringFixed(2)),
	)

	event := model.NewEvent(model.EventBookingCreated, booking, req.Now)
	event.Extra["nights"] = strconv.Itoa(quote.Nights)
	event.Extra["payment_amount"] = booking.PaymentAmount.StringFixed(2)

	return &Result{Booking: booking, Warnings: dispatch(ctx, s.notifier, s.logger, event)}, nil
}

// GetByID получает бронирование для администратора
func (s *BookingService) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, model.NotFound("booking", id)
	}
	return booking, nil
}

// GetForGuest получает бронирование гостя. Чужое бронирование выглядит как несуществующее.
func (s *BookingService) GetForGuest(ctx context.Context, id, userID int64) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, model.NotFound("booking", id)
	}
	return booking, nil
}

// Confirm переводит pending в confirmed. Повторное подтверждение не ошибка.
func (s *BookingService) Confirm(ctx context.Context, id int64, now time.Time) (*Result, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Status == model.BookingStatusConfirmed {
		return &Result{Booking: booking}, nil
	}

	state := booking.State()
	if !state.Allows(model.ActionConfirm) {
		return nil, model.InvalidState(state, model.ErrAlreadyTerminal)
	}

	confirmed := model.BookingStatusConfirmed
	updated, err := s.bookings.Update(ctx, id, model.BookingPatch{
		Status:       &confirmed,
		ExpectStatus: []model.BookingStatus{model.BookingStatusPending},
	})
	if err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}

	if updated == nil {
		// Параллельное подтверждение считаем успехом
		current, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == model.BookingStatusConfirmed {
			return &Result{Booking: current}, nil
		}
		return nil, model.InvalidState(current.State(), model.ErrAlreadyTerminal)
	}

	s.logger.Info("Booking confirmed",
		zap.Int64("booking_id", id),
		zap.String("payment_status", string(updated.PaymentStatus)),
	)

	event := model.NewEvent(model.EventBookingConfirmed, updated, now)
	return &Result{Booking: updated, Warnings: dispatch(ctx, s.notifier, s.logger, event)}, nil
}

// RefundPreview показывает возврат при отмене сейчас, ничего не меняя
func (s *BookingService) RefundPreview(ctx context.Context, id, userID int64, now time.Time) (*model.RefundDecision, error) {
	booking, err := s.GetForGuest(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	decision := s.refunds.Compute(booking.CheckIn, now, booking.TotalAmount)
	return &decision, nil
}

// CancelByGuest отмена гостем по политике возврата.
// Если политика запрещает отмену, бронирование не меняется.
func (s *BookingService) CancelByGuest(ctx context.Context, id, userID int64, reason string, now time.Time) (*Result, error) {
	booking, err := s.GetForGuest(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, booking, model.CancelledByGuest, reason, now, true)
}

// CancelByAdmin отмена администратором в любой момент до завершения
func (s *BookingService) CancelByAdmin(ctx context.Context, id int64, reason string, now time.Time) (*Result, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, booking, model.CancelledByAdmin, reason, now, false)
}

func (s *BookingService) cancel(ctx context.Context, booking *model.Booking, by, reason string, now time.Time, enforcePolicy bool) (*Result, error) {
	state := booking.State()
	if !state.Allows(model.ActionCancel) {
		return nil, model.InvalidState(state, model.ErrAlreadyTerminal)
	}

	decision := s.refunds.Compute(booking.CheckIn, now, booking.TotalAmount)
	if enforcePolicy && !decision.CanCancel {
		return nil, model.InvalidState(state, model.ErrCancellationWindowClosed)
	}

	cancelled := model.BookingStatusCancelled
	reason = strings.TrimSpace(reason)
	updated, err := s.bookings.Update(ctx, booking.ID, model.BookingPatch{
		Status:             &cancelled,
		CancelledBy:        &by,
		CancelledAt:        &now,
		CancellationReason: &reason,
		RefundAmount:       &decision.Amount,
		RefundPercentage:   &decision.Percentage,
		ExpectStatus:       model.ActiveBookingStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if updated == nil {
		return nil, s.staleState(ctx, booking.ID)
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.String("cancelled_by", by),
		zap.String("policy", decision.Policy),
		zap.Int("refund_percentage", decision.Percentage),
		zap.String("refund_amount", decision.Amount.StringFixed(2)),
	)

	event := model.NewEvent(model.EventBookingCancelled, updated, now)
	event.Extra["cancelled_by"] = by
	event.Extra["refund_amount"] = decision.Amount.StringFixed(2)
	event.Extra["refund_percentage"] = strconv.Itoa(decision.Percentage)

	return &Result{
		Booking:  updated,
		Refund:   &decision,
		Warnings: dispatch(ctx, s.notifier, s.logger, event),
	}, nil
}

// RescheduleRequest перенос дат. AsAdmin отключает проверку владельца.
type RescheduleRequest struct {
	BookingID int64
	UserID    int64
	AsAdmin   bool
	CheckIn   time.Time
	CheckOut  time.Time
	Now       time.Time
}

// Reschedule переносит даты, пересчитывает сумму и сбрасывает оплату в pending.
// Даты и сумма меняются одним UPDATE.
func (s *BookingService) Reschedule(ctx context.Context, req RescheduleRequest) (*Result, error) {
	var (
		booking *model.Booking
		err     error
	)
	if req.AsAdmin {
		booking, err = s.GetByID(ctx, req.BookingID)
	} else {
		booking, err = s.GetForGuest(ctx, req.BookingID, req.UserID)
	}
	if err != nil {
		return nil, err
	}

	quote, err := s.pricing.Price(req.CheckIn, req.CheckOut, booking.GuestCount)
	if err != nil {
		return nil, err
	}
	if req.CheckIn.Before(model.StartOfDay(req.Now)) {
		return nil, model.Invalid("check_in", "check-in cannot be in the past")
	}

	state := booking.State()
	if !state.Allows(model.ActionReschedule) {
		return nil, model.InvalidState(state, model.ErrAlreadyTerminal)
	}
	if booking.Status == model.BookingStatusConfirmed && booking.CheckIn.Sub(req.Now) < rescheduleNoticeForConfirmed {
		return nil, model.InvalidState(state, model.ErrRescheduleWindowClosed)
	}

	total := quote.Total
	deposit := model.DepositAmount(total, booking.PaymentType)
	paymentPending := model.PaymentStatusPending

	var updated *model.Booking
	err = withLock(ctx, s.locker, CalendarLockKey, func() error {
		busy, err := s.detector.Check(ctx, req.CheckIn, req.CheckOut, booking.ID)
		if err != nil {
			return fmt.Errorf("check conflicts: %w", err)
		}
		if busy {
			return model.Conflict(model.ErrDatesUnavailable)
		}

		updated, err = s.bookings.Update(ctx, booking.ID, model.BookingPatch{
			CheckIn:       &req.CheckIn,
			CheckOut:      &req.CheckOut,
			TotalAmount:   &total,
			PaymentAmount: &deposit,
			PaymentStatus: &paymentPending,
			ExpectStatus:  model.ActiveBookingStatuses,
		})
		if err != nil {
			return fmt.Errorf("reschedule booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, s.staleState(ctx, booking.ID)
	}

	s.logger.Info("Booking rescheduled",
		zap.Int64("booking_id", booking.ID),
		zap.Time("old_check_in", booking.CheckIn),
		zap.Time("new_check_in", updated.CheckIn),
		zap.String("old_total", booking.TotalAmount.StringFixed(2)),
		zap.String("new_total", updated.TotalAmount.StringFixed(2)),
	)

	event := model.NewEvent(model.EventBookingRescheduled, updated, req.Now)
	event.Extra["previous_check_in"] = booking.CheckIn.Format(time.RFC3339)
	event.Extra["previous_check_out"] = booking.CheckOut.Format(time.RFC3339)
	event.Extra["previous_total"] = booking.TotalAmount.StringFixed(2)

	return &Result{Booking: updated, Warnings: dispatch(ctx, s.notifier, s.logger, event)}, nil
}

// ReconcilePayment сверяет pending-оплату со шлюзом
func (s *BookingService) ReconcilePayment(ctx context.Context, id int64, now time.Time) (*Result, error) {
	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.gateway == nil || booking.ExternalPaymentID == nil || *booking.ExternalPaymentID == "" {
		return nil, model.Invalid("external_payment_id", model.ErrNoGatewayPayment.Error())
	}

	state := booking.State()
	if !state.Allows(model.ActionReconcile) {
		return nil, model.InvalidState(state, model.ErrAlreadyTerminal)
	}
	if booking.PaymentStatus != model.PaymentStatusPending {
		return &Result{Booking: booking}, nil
	}

	payment, err := s.gateway.QueryPayment(ctx, *booking.ExternalPaymentID)
	if err != nil {
		return nil, fmt.Errorf("query gateway payment: %w", err)
	}

	var (
		paymentStatus model.PaymentStatus
		eventType     model.EventType
	)
	switch payment.Status {
	case model.GatewayStatusPaid:
		// Недоплата остаётся pending до решения администратора
		if !payment.Covers(booking.PaymentAmount) {
			s.logger.Warn("Gateway payment does not cover amount due",
				zap.Int64("booking_id", id),
				zap.String("external_payment_id", *booking.ExternalPaymentID),
				zap.String("received", payment.Amount.StringFixed(2)),
				zap.String("currency", payment.Currency),
				zap.String("due", booking.PaymentAmount.StringFixed(2)),
			)
			warning := fmt.Sprintf("%s: received %s %s, due %s %s", model.ErrGatewayAmountShort,
				payment.Amount.StringFixed(2), payment.Currency, booking.PaymentAmount.StringFixed(2), model.Currency)
			return &Result{Booking: booking, Warnings: []string{warning}}, nil
		}
		paymentStatus, eventType = model.PaymentStatusPaid, model.EventGatewayPaid
	case model.GatewayStatusFailed:
		paymentStatus, eventType = model.PaymentStatusFailed, model.EventGatewayFailed
	default:
		return &Result{Booking: booking}, nil
	}

	updated, err := s.bookings.Update(ctx, id, model.BookingPatch{
		PaymentStatus: &paymentStatus,
		ExpectStatus:  model.ActiveBookingStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	if updated == nil {
		return nil, s.staleState(ctx, id)
	}

	s.logger.Info("Gateway payment reconciled",
		zap.Int64("booking_id", id),
		zap.String("external_payment_id", *booking.ExternalPaymentID),
		zap.String("payment_status", string(paymentStatus)),
	)

	event := model.NewEvent(eventType, updated, now)
	return &Result{Booking: updated, Warnings: dispatch(ctx, s.notifier, s.logger, event)}, nil
}

// AttachGatewayPayment привязывает платёж шлюза к бронированию.
// Идентификатор задаёт только администратор, гостю сверка не доверяет.
func (s *BookingService) AttachGatewayPayment(ctx context.Context, id int64, externalID string) (*Result, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, model.Invalid("external_payment_id", "external payment id is required")
	}

	booking, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	state := booking.State()
	if !state.Allows(model.ActionReconcile) {
		return nil, model.InvalidState(state, model.ErrAlreadyTerminal)
	}

	patch := model.BookingPatch{
		ExternalPaymentID: &externalID,
		ExpectStatus:      model.ActiveBookingStatuses,
	}
	// Новый платёж после отказа снова ждёт сверки
	if booking.PaymentStatus == model.PaymentStatusFailed {
		pending := model.PaymentStatusPending
		patch.PaymentStatus = &pending
	}

	updated, err := s.bookings.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("attach gateway payment: %w", err)
	}
	if updated == nil {
		return nil, s.staleState(ctx, id)
	}

	s.logger.Info("Gateway payment attached",
		zap.Int64("booking_id", id),
		zap.String("external_payment_id", externalID),
	)

	return &Result{Booking: updated}, nil
}

// ReconcilePending сверяет все бронирования, ожидающие оплаты через шлюз
func (s *BookingService) ReconcilePending(ctx context.Context, now time.Time) (int, error) {
	if s.gateway == nil {
		s.logger.Debug("Payment gateway is not configured, reconciliation skipped")
		return 0, nil
	}

	bookings, err := s.bookings.ListAwaitingGateway(ctx)
	if err != nil {
		return 0, fmt.Errorf("list awaiting gateway: %w", err)
	}

	changed := 0
	for _, b := range bookings {
		res, err := s.ReconcilePayment(ctx, b.ID, now)
		if err != nil {
			s.logger.Error("Failed to reconcile payment", zap.Int64("booking_id", b.ID), zap.Error(err))
			continue
		}
		if res.Booking.PaymentStatus != b.PaymentStatus {
			changed++
		}
	}

	return changed, nil
}

// SendCheckInReminders напоминает о заезде завтра подтверждённым гостям
func (s *BookingService) SendCheckInReminders(ctx context.Context, today time.Time) (int, error) {
	from := model.StartOfDay(today).AddDate(0, 0, 1)
	to := from.AddDate(0, 0, 1)

	bookings, err := s.bookings.ListCheckingIn(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list bookings checking in: %w", err)
	}

	sent := 0
	for _, b := range bookings {
		event := model.NewEvent(model.EventCheckInReminder, b, today)
		if warnings := dispatch(ctx, s.notifier, s.logger, event); len(warnings) == 0 {
			sent++
		}
	}

	s.logger.Info("Check-in reminders dispatched",
		zap.Time("date", from),
		zap.Int("bookings", len(bookings)),
		zap.Int("sent", sent),
	)

	return sent, nil
}

// AnonymizeGuest обезличивает бронирования удалённого аккаунта. Строки остаются.
func (s *BookingService) AnonymizeGuest(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, model.Invalid("user_id", "guest account is required")
	}

	count, err := s.bookings.AnonymizeUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("anonymize bookings: %w", err)
	}

	s.logger.Info("Guest bookings anonymized", zap.Int64("user_id", userID), zap.Int64("bookings", count))
	return count, nil
}

// staleState ошибка для UPDATE, не прошедшего условие по статусу
func (s *BookingService) staleState(ctx context.Context, id int64) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.State().IsTerminal() {
		return model.InvalidState(current.State(), model.ErrAlreadyTerminal)
	}
	return model.Conflict(model.ErrBookingChanged)
}
