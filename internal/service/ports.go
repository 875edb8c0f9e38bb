package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"go.uber.org/zap"
)

// BookingStore хранилище бронирований.
// GetByID возвращает nil, nil если записи нет; Update возвращает nil, nil
// если запись не найдена или не прошла условие ExpectStatus.
type BookingStore interface {
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListOverlapping(ctx context.Context, start, end time.Time, excludeID int64, statuses []model.BookingStatus) ([]*model.Booking, error)
	Create(ctx context.Context, booking *model.Booking) error
	Update(ctx context.Context, id int64, patch model.BookingPatch) (*model.Booking, error)
	CompleteCheckedOut(ctx context.Context, cutoff time.Time) ([]*model.Booking, error)
	ListCheckingIn(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
	ListAwaitingGateway(ctx context.Context) ([]*model.Booking, error)
	AnonymizeUser(ctx context.Context, userID int64) (int64, error)
}

// ProofStore хранилище чеков. Семантика nil, nil как у BookingStore.
type ProofStore interface {
	GetByID(ctx context.Context, id int64) (*model.PaymentProof, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]*model.PaymentProof, error)
	ListPending(ctx context.Context) ([]*model.PaymentProof, error)
	Create(ctx context.Context, proof *model.PaymentProof) error
	Update(ctx context.Context, id int64, patch model.ProofPatch) (*model.PaymentProof, error)
}

// Transactor выполняет fn в одной транзакции
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker распределённая блокировка
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Notifier доставка уведомлений, ошибка не отменяет переход
type Notifier interface {
	Notify(ctx context.Context, event model.Event) error
}

// GatewayQuerier статус и полученная сумма платежа во внешнем шлюзе
type GatewayQuerier interface {
	QueryPayment(ctx context.Context, externalID string) (*model.GatewayPayment, error)
}

// CalendarLockKey один ключ на весь календарь площадки
const CalendarLockKey = "calendar"

// dispatch отправляет событие и превращает ошибку в предупреждение
func dispatch(ctx context.Context, notifier Notifier, logger *zap.Logger, event model.Event) []string {
	if notifier == nil {
		return nil
	}

	if err := notifier.Notify(ctx, event); err != nil {
		fields := []zap.Field{
			zap.String("event", string(event.Type)),
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		}
		if event.Booking != nil {
			fields = append(fields, zap.Int64("booking_id", event.Booking.ID))
		}
		logger.Warn("Failed to dispatch notification", fields...)
		return []string{fmt.Sprintf("notification %s was not sent: %v", event.Type, err)}
	}

	return nil
}

func withLock(ctx context.Context, locker Locker, key string, fn func() error) error {
	if locker == nil {
		return fn()
	}

	unlock, err := locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", key, err)
	}
	defer unlock()

	return fn()
}
