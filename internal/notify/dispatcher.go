// Package notify доставка уведомлений о переходах бронирования.
// Ошибка доставки никогда не откатывает переход.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification dispatcher is stopped")
)

// Channel один канал доставки
type Channel interface {
	Notify(ctx context.Context, event model.Event) error
}

// Dispatcher ставит события в очередь и отправляет их в фоне.
// Notify возвращает ошибку только если событие не удалось поставить в очередь.
type Dispatcher struct {
	channel Channel
	queue   chan model.Event
	timeout time.Duration
	workers int
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(channel Channel, size, workers int, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		channel: channel,
		queue:   make(chan model.Event, size),
		timeout: 30 * time.Second,
		workers: workers,
		logger:  logger,
	}
}

// Start запускает воркеры
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx)
	}
}

// Stop закрывает очередь и ждёт отправки уже принятых событий
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) Notify(_ context.Context, event model.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		return fmt.Errorf("%s: %w", event.Type, ErrQueueFull)
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	defer d.wg.Done()

	for event := range d.queue {
		d.deliver(ctx, event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event model.Event) {
	// Воркер доотправляет очередь и после отмены родительского контекста
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	fields := []zap.Field{
		zap.String("event", string(event.Type)),
		zap.String("event_id", event.ID.String()),
	}
	if event.Booking != nil {
		fields = append(fields, zap.Int64("booking_id", event.Booking.ID))
	}

	if err := d.channel.Notify(sendCtx, event); err != nil {
		d.logger.Error("Failed to deliver notification", append(fields, zap.Error(err))...)
		return
	}

	d.logger.Debug("Notification delivered", fields...)
}
