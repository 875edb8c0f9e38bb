package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Данные inline кнопок: "<действие>:<id>"
const (
	callbackProofApprove   = "proof_approve"
	callbackProofReject    = "proof_reject"
	callbackBookingConfirm = "booking_confirm"
)

// MessageSender часть *bot.Bot, которой пользуется AdminNotifier
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// AdminNotifier отправляет события в чат администратора
type AdminNotifier struct {
	sender   MessageSender
	chatID   int64
	location *time.Location
}

func NewAdminNotifier(sender MessageSender, chatID int64, location *time.Location) *AdminNotifier {
	if location == nil {
		location = time.UTC
	}
	return &AdminNotifier{sender: sender, chatID: chatID, location: location}
}

func (n *AdminNotifier) Notify(ctx context.Context, event model.Event) error {
	// Гостю напоминание уходит письмом, администратору оно не нужно
	if event.Type == model.EventCheckInReminder {
		return nil
	}

	params := &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   adminMessage(event, n.location),
	}
	if kb := eventKeyboard(event); kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := n.sender.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send %s to admin chat: %w", event.Type, err)
	}
	return nil
}

// eventKeyboard кнопки действий для событий, которые ждут администратора
func eventKeyboard(event model.Event) *models.InlineKeyboardMarkup {
	switch event.Type {
	case model.EventProofSubmitted:
		if event.Proof == nil {
			return nil
		}
		return proofKeyboard(event.Proof.ID)
	case model.EventPaymentVerified, model.EventGatewayPaid:
		if event.Booking == nil || event.Booking.Status != model.BookingStatusPending {
			return nil
		}
		return NewBuilder().
			Row(Button("✅ Confirm booking", callbackData(callbackBookingConfirm, event.Booking.ID))).
			Build()
	}
	return nil
}

func proofKeyboard(proofID int64) *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(
			Button("✅ Approve", callbackData(callbackProofApprove, proofID)),
			Button("❌ Reject", callbackData(callbackProofReject, proofID)),
		).
		Build()
}

func callbackData(action string, id int64) string {
	return action + ":" + strconv.FormatInt(id, 10)
}
