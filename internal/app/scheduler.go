package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CompletionSweeper завершает бронирования после выезда
type CompletionSweeper interface {
	Sweep(ctx context.Context, today time.Time) (int64, error)
}

// BookingJobs периодические задачи сервиса бронирований
type BookingJobs interface {
	ReconcilePending(ctx context.Context, now time.Time) (int, error)
	SendCheckInReminders(ctx context.Context, today time.Time) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	sweeper  CompletionSweeper
	jobs     BookingJobs
	location *time.Location
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once

	lastReminderDay time.Time
}

// NewScheduler создаёт новый планировщик. Даты считаются в location площадки.
func NewScheduler(sweeper CompletionSweeper, jobs BookingJobs, location *time.Location, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		jobs:     jobs,
		location: location,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
}

func (s *Scheduler) run(ctx context.Context) {
	// Первый запуск сразу при старте
	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-s.stopChan:
			s.logger.Info("Background jobs stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Background jobs cancelled")
			return
		}
	}
}

// Tick выполняет один проход: сверка платежей, завершение, напоминания раз в сутки.
// Ошибка одной задачи не мешает остальным.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().In(s.location)

	if s.jobs != nil {
		changed, err := s.jobs.ReconcilePending(ctx, now)
		if err != nil {
			s.logger.Error("Failed to reconcile gateway payments", zap.Error(err))
		} else if changed > 0 {
			s.logger.Info("Gateway payments reconciled", zap.Int("changed", changed))
		}
	}

	if s.sweeper != nil {
		if _, err := s.sweeper.Sweep(ctx, now); err != nil {
			s.logger.Error("Failed to complete checked out bookings", zap.Error(err))
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	if s.jobs != nil && !today.Equal(s.lastReminderDay) {
		if _, err := s.jobs.SendCheckInReminders(ctx, now); err != nil {
			s.logger.Error("Failed to send check-in reminders", zap.Error(err))
			return
		}
		s.lastReminderDay = today
	}
}
