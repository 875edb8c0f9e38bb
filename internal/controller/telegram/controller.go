// Package telegram бот администратора: уведомления о бронированиях и
// проверка чеков кнопками в чате
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

var errInvalidCallback = errors.New("invalid callback format")

// BookingService операции с бронированиями, доступные из бота
type BookingService interface {
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	Confirm(ctx context.Context, id int64, now time.Time) (*service.Result, error)
}

// PaymentService операции с чеками, доступные из бота
type PaymentService interface {
	ListPending(ctx context.Context) ([]*model.PaymentProof, error)
	Decide(ctx context.Context, proofID int64, decision service.Decision, now time.Time) (*service.ProofResult, error)
}

type BotController struct {
	bot         *bot.Bot
	bookings    BookingService
	payments    PaymentService
	adminChatID int64
	location    *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	bookings BookingService,
	payments PaymentService,
	adminChatID int64,
	location *time.Location,
	logger *zap.Logger,
) *BotController {
	if location == nil {
		location = time.UTC
	}
	return &BotController{
		bot:         botInstance,
		bookings:    bookings,
		payments:    payments,
		adminChatID: adminChatID,
		location:    location,
		now:         time.Now,
		logger:      logger,
	}
}

// RegisterHandlers регистрирует команды и обработчик кнопок
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pending", bot.MatchTypeExact, c.handlePending)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handleCallbackQuery)

	return c.setCommands(ctx)
}

func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Admin chat status"},
		{Command: "pending", Description: "🧾 Payment proofs waiting for review"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает long polling, блокируется до отмены ctx
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}

func (c *BotController) isAdminChat(chatID int64) bool {
	return c.adminChatID != 0 && chatID == c.adminChatID
}

func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if !c.isAdminChat(chatID) {
		c.sendMessage(ctx, b, chatID, fmt.Sprintf("This bot serves the venue admin chat only.\nYour chat id: %d", chatID), nil)
		return
	}
	c.sendMessage(ctx, b, chatID, "👋 Booking notifications are delivered to this chat.\nUse /pending to review payment proofs.", nil)
}

func (c *BotController) handlePending(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || !c.isAdminChat(update.Message.Chat.ID) {
		return
	}
	chatID := update.Message.Chat.ID

	cards, err := c.pendingCards(ctx)
	if err != nil {
		c.logger.Error("Failed to list pending proofs", zap.Error(err))
		c.sendMessage(ctx, b, chatID, "❌ Failed to load pending proofs", nil)
		return
	}
	if len(cards) == 0 {
		c.sendMessage(ctx, b, chatID, "No payment proofs waiting for review", nil)
		return
	}
	for _, card := range cards {
		c.sendMessage(ctx, b, chatID, card.text, card.keyboard)
	}
}

type proofCard struct {
	text     string
	keyboard *models.InlineKeyboardMarkup
}

// pendingCards карточки чеков на проверке вместе с бронированием
func (c *BotController) pendingCards(ctx context.Context) ([]proofCard, error) {
	proofs, err := c.payments.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending proofs: %w", err)
	}

	cards := make([]proofCard, 0, len(proofs))
	for _, p := range proofs {
		text := FormatProof(p)
		booking, err := c.bookings.GetByID(ctx, p.BookingID)
		if err != nil && !model.IsNotFound(err) {
			return nil, fmt.Errorf("get booking %d: %w", p.BookingID, err)
		}
		if booking != nil {
			text += "\n\n" + FormatBooking(booking, c.location)
		}
		cards = append(cards, proofCard{text: text, keyboard: proofKeyboard(p.ID)})
	}
	return cards, nil
}

func (c *BotController) handleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	callback := update.CallbackQuery

	msg := callback.Message.Message
	if msg == nil || !c.isAdminChat(msg.Chat.ID) {
		answerCallback(ctx, b, callback.ID, "Not allowed", true)
		return
	}

	c.logger.Info("Callback received",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID),
	)

	text, err := c.processCallback(ctx, callback.Data)
	if err != nil {
		if !isDomainError(err) {
			c.logger.Error("Callback failed", zap.String("data", callback.Data), zap.Error(err))
		}
		answerCallback(ctx, b, callback.ID, errorMessage(err), true)
		return
	}

	answerCallback(ctx, b, callback.ID, text, false)
	c.sendMessage(ctx, b, msg.Chat.ID, text, nil)
}

// processCallback выполняет действие кнопки и возвращает текст результата
func (c *BotController) processCallback(ctx context.Context, data string) (string, error) {
	action, id, err := parseCallback(data)
	if err != nil {
		return "", err
	}
	now := c.now()

	switch action {
	case callbackProofApprove:
		res, err := c.payments.Decide(ctx, id, service.Decision{Action: service.DecisionApprove}, now)
		if err != nil {
			return "", err
		}
		return withWarnings(fmt.Sprintf("✅ Proof #%d approved", res.Proof.ID), res.Warnings), nil
	case callbackProofReject:
		res, err := c.payments.Decide(ctx, id, service.Decision{Action: service.DecisionReject}, now)
		if err != nil {
			return "", err
		}
		return withWarnings(fmt.Sprintf("❌ Proof #%d rejected", res.Proof.ID), res.Warnings), nil
	case callbackBookingConfirm:
		res, err := c.bookings.Confirm(ctx, id, now)
		if err != nil {
			return "", err
		}
		return withWarnings(fmt.Sprintf("✅ Booking #%d confirmed", res.Booking.ID), res.Warnings), nil
	}
	return "", errInvalidCallback
}

func withWarnings(text string, warnings []string) string {
	if len(warnings) == 0 {
		return text
	}
	return text + "\n⚠️ " + strings.Join(warnings, "\n⚠️ ")
}

// parseCallback разбирает "proof_approve:123"
func parseCallback(data string) (string, int64, error) {
	action, rawID, ok := strings.Cut(data, ":")
	if !ok {
		return "", 0, errInvalidCallback
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, errInvalidCallback
	}
	return action, id, nil
}

func isDomainError(err error) bool {
	return errors.Is(err, errInvalidCallback) ||
		model.IsValidation(err) || model.IsNotFound(err) ||
		model.IsConflict(err) || model.IsInvalidState(err)
}

// errorMessage текст ошибки для всплывающего окна
func errorMessage(err error) string {
	var state *model.InvalidStateError
	switch {
	case errors.Is(err, errInvalidCallback):
		return "❌ Invalid button data"
	case errors.Is(err, model.ErrProofAlreadyDecided):
		return "ℹ️ This proof was already processed"
	case model.IsNotFound(err):
		return "❌ " + err.Error()
	case errors.As(err, &state):
		return fmt.Sprintf("❌ Not allowed while booking is %s", GetStateDisplay(state.Current).Text)
	case model.IsConflict(err), model.IsValidation(err):
		return "❌ " + err.Error()
	default:
		return "❌ Something went wrong, try again later"
	}
}

func answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
}

func (c *BotController) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		c.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
