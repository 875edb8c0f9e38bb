package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"go.uber.org/zap"
)

// Sweeper завершает подтверждённые бронирования после выезда.
// Своих часов нет: дата передаётся вызывающим.
type Sweeper struct {
	bookings BookingStore
	notifier Notifier
	logger   *zap.Logger
}

func NewSweeper(bookings BookingStore, notifier Notifier, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		bookings: bookings,
		notifier: notifier,
		logger:   logger,
	}
}

// Sweep переводит confirmed с выездом не позже today в completed.
// Повторный запуск в тот же день ничего не меняет.
func (s *Sweeper) Sweep(ctx context.Context, today time.Time) (int64, error) {
	cutoff := model.StartOfDay(today).AddDate(0, 0, 1)

	completed, err := s.bookings.CompleteCheckedOut(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("complete checked out bookings: %w", err)
	}

	for _, b := range completed {
		dispatch(ctx, s.notifier, s.logger, model.NewEvent(model.EventBookingCompleted, b, today))
	}

	s.logger.Info("Completion sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int("completed", len(completed)),
	)

	return int64(len(completed)), nil
}
