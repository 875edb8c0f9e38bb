// Package conflict проверяет пересечение дат бронирований.
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

// Overlaps полуинтервалы [aStart, aEnd) и [bStart, bEnd) пересекаются
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// HasConflict проверяет кандидата против существующих бронирований.
// Участвуют только pending и confirmed; бронирование excludeID пропускается.
func HasConflict(start, end time.Time, excludeID int64, existing []*model.Booking) bool {
	for _, b := range existing {
		if b == nil || b.ID == excludeID || !b.Status.IsActive() {
			continue
		}
		if Overlaps(start, end, b.CheckIn, b.CheckOut) {
			return true
		}
	}
	return false
}

// OverlapLister чтение пересекающихся бронирований из хранилища
type OverlapLister interface {
	ListOverlapping(ctx context.Context, start, end time.Time, excludeID int64, statuses []model.BookingStatus) ([]*model.Booking, error)
}

// Detector проверяет конфликт по данным хранилища
type Detector struct {
	bookings OverlapLister
}

// NewDetector создаёт детектор
func NewDetector(bookings OverlapLister) *Detector {
	return &Detector{bookings: bookings}
}

// Check возвращает true если даты заняты
func (d *Detector) Check(ctx context.Context, start, end time.Time, excludeID int64) (bool, error) {
	candidates, err := d.bookings.ListOverlapping(ctx, start, end, excludeID, model.ActiveBookingStatuses)
	if err != nil {
		return false, fmt.Errorf("list overlapping bookings: %w", err)
	}

	// Хранилище может вернуть лишнее, решение принимаем здесь
	return HasConflict(start, end, excludeID, candidates), nil
}
