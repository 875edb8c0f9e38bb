package notify

import (
	"context"
	"errors"

	"github.com/Freeeeeet/venue_booking/internal/model"
)

// Multi отправляет событие во все каналы, сбой одного не мешает другим
type Multi []Channel

func (m Multi) Notify(ctx context.Context, event model.Event) error {
	var errs []error
	for _, ch := range m {
		if ch == nil {
			continue
		}
		if err := ch.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
