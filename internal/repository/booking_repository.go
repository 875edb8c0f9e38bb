package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const bookingColumns = `
	id, user_id, guest_name, guest_email, guest_phone, check_in, check_out, guest_count,
	total_amount, payment_type, payment_amount, status, payment_status, external_payment_id,
	cancelled_by, cancelled_at, cancellation_reason, refund_amount, refund_percentage,
	created_at, updated_at`

const externalPaymentIndex = "uq_bookings_external_payment"

// Имя, которое остаётся в бронированиях удалённого аккаунта
const anonymizedGuestName = "Deleted guest"

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(db *base.Repository) *BookingRepository {
	return &BookingRepository{Repository: db}
}

// Create создаёт новое бронирование.
// Пересечение с активным бронированием отсекает exclusion constraint.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (
			user_id, guest_name, guest_email, guest_phone, check_in, check_out, guest_count,
			total_amount, payment_type, payment_amount, status, payment_status, external_payment_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.UserID,
		booking.GuestName,
		booking.GuestEmail,
		booking.GuestPhone,
		booking.CheckIn,
		booking.CheckOut,
		booking.GuestCount,
		booking.TotalAmount,
		booking.PaymentType,
		booking.PaymentAmount,
		booking.Status,
		booking.PaymentStatus,
		booking.ExternalPaymentID,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", base.MapConflict(err, model.ErrDatesUnavailable))
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// ListOverlapping бронирования с заданными статусами, пересекающие [start, end)
func (r *BookingRepository) ListOverlapping(ctx context.Context, start, end time.Time, excludeID int64, statuses []model.BookingStatus) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE check_in < $2 AND check_out > $1
		  AND id <> $3
		  AND status = ANY($4)
		ORDER BY check_in
	`

	return r.list(ctx, "list overlapping bookings", query, start, end, excludeID, statusNames(statuses))
}

// Update применяет патч, если статус совпадает с ExpectStatus.
// Возвращает nil, nil если строка не найдена или статус уже другой.
func (r *BookingRepository) Update(ctx context.Context, id int64, patch model.BookingPatch) (*model.Booking, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.CheckIn != nil {
		set("check_in", *patch.CheckIn)
	}
	if patch.CheckOut != nil {
		set("check_out", *patch.CheckOut)
	}
	if patch.GuestCount != nil {
		set("guest_count", *patch.GuestCount)
	}
	if patch.TotalAmount != nil {
		set("total_amount", *patch.TotalAmount)
	}
	if patch.PaymentAmount != nil {
		set("payment_amount", *patch.PaymentAmount)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.PaymentStatus != nil {
		set("payment_status", *patch.PaymentStatus)
	}
	if patch.ExternalPaymentID != nil {
		set("external_payment_id", *patch.ExternalPaymentID)
	}
	if patch.CancelledBy != nil {
		set("cancelled_by", *patch.CancelledBy)
	}
	if patch.CancelledAt != nil {
		set("cancelled_at", *patch.CancelledAt)
	}
	if patch.CancellationReason != nil {
		set("cancellation_reason", *patch.CancellationReason)
	}
	if patch.RefundAmount != nil {
		set("refund_amount", *patch.RefundAmount)
	}
	if patch.RefundPercentage != nil {
		set("refund_percentage", *patch.RefundPercentage)
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	where := fmt.Sprintf("id = $%d", len(args))
	if len(patch.ExpectStatus) > 0 {
		args = append(args, statusNames(patch.ExpectStatus))
		where += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}

	query := fmt.Sprintf(`UPDATE bookings SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), where, bookingColumns)

	booking, err := scanBooking(r.QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		if base.ViolatesConstraint(err, externalPaymentIndex) {
			return nil, fmt.Errorf("update booking: %w", model.Conflict(model.ErrExternalPaymentInUse))
		}
		return nil, fmt.Errorf("update booking: %w", base.MapConflict(err, model.ErrDatesUnavailable))
	}

	return booking, nil
}

// CompleteCheckedOut переводит confirmed с выездом раньше cutoff в completed
func (r *BookingRepository) CompleteCheckedOut(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND check_out < $3
		RETURNING ` + bookingColumns

	return r.list(ctx, "complete checked out bookings", query,
		model.BookingStatusCompleted, model.BookingStatusConfirmed, cutoff)
}

// ListCheckingIn подтверждённые бронирования с заездом в [from, to)
func (r *BookingRepository) ListCheckingIn(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND check_in >= $2 AND check_in < $3
		ORDER BY check_in
	`

	return r.list(ctx, "list bookings checking in", query, model.BookingStatusConfirmed, from, to)
}

// ListAwaitingGateway активные бронирования с неподтверждённым платежом шлюза
func (r *BookingRepository) ListAwaitingGateway(ctx context.Context) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = ANY($1)
		  AND payment_status = $2
		  AND external_payment_id IS NOT NULL
		ORDER BY created_at
	`

	return r.list(ctx, "list bookings awaiting gateway", query,
		statusNames(model.ActiveBookingStatuses), model.PaymentStatusPending)
}

// AnonymizeUser стирает персональные данные гостя, история бронирований остаётся
func (r *BookingRepository) AnonymizeUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		UPDATE bookings
		SET user_id = 0, guest_name = $2, guest_email = '', guest_phone = '', updated_at = NOW()
		WHERE user_id = $1
	`

	affected, err := r.ExecAffected(ctx, query, userID, anonymizedGuestName)
	if err != nil {
		return 0, fmt.Errorf("anonymize bookings: %w", err)
	}

	return affected, nil
}

func (r *BookingRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return bookings, nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		booking model.Booking
		refund  decimal.NullDecimal
	)

	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.GuestName,
		&booking.GuestEmail,
		&booking.GuestPhone,
		&booking.CheckIn,
		&booking.CheckOut,
		&booking.GuestCount,
		&booking.TotalAmount,
		&booking.PaymentType,
		&booking.PaymentAmount,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.ExternalPaymentID,
		&booking.CancelledBy,
		&booking.CancelledAt,
		&booking.CancellationReason,
		&refund,
		&booking.RefundPercentage,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if refund.Valid {
		booking.RefundAmount = &refund.Decimal
	}

	return &booking, nil
}

func statusNames(statuses []model.BookingStatus) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return names
}
