package telegram

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/Freeeeeet/venue_booking/internal/pricing"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatPrice сумма в песо с разделителями тысяч: ₱12,500.00
func FormatPrice(amount decimal.Decimal) string {
	return printer.Sprintf("₱%.2f", amount.Round(2).InexactFloat64())
}

// FormatDate только дата
func FormatDate(t time.Time) string {
	return t.Format("Mon, 02 Jan 2006")
}

// FormatStay период проживания с количеством ночей
func FormatStay(b *model.Booking, loc *time.Location) string {
	in := b.CheckIn.In(loc)
	out := b.CheckOut.In(loc)
	nights := len(pricing.Nights(in, out))
	return fmt.Sprintf("%s → %s (%s)", FormatDate(in), FormatDate(out), pluralize(nights, "night", "nights"))
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// StateDisplay emoji и подпись для состояния бронирования
type StateDisplay struct {
	Emoji string
	Text  string
}

func GetStateDisplay(state model.State) StateDisplay {
	displays := map[model.State]StateDisplay{
		model.StateAwaitingPayment:                    {"⏳", "Awaiting payment"},
		model.StatePaymentUnderReview:                 {"🔎", "Payment under review"},
		model.StatePaymentRejected:                    {"⚠️", "Payment rejected"},
		model.StatePaymentFailed:                      {"🚫", "Payment failed"},
		model.StatePaymentVerifiedPendingConfirmation: {"💰", "Paid, waiting for confirmation"},
		model.StateConfirmed:                          {"✅", "Confirmed"},
		model.StateCancelled:                          {"❌", "Cancelled"},
		model.StateCompleted:                          {"✔️", "Completed"},
	}

	if display, ok := displays[state]; ok {
		return display
	}
	return StateDisplay{"❓", string(state)}
}

// FormatBooking карточка бронирования для администратора
func FormatBooking(b *model.Booking, loc *time.Location) string {
	state := GetStateDisplay(b.State())

	var sb strings.Builder
	fmt.Fprintf(&sb, "Booking #%d\n", b.ID)
	fmt.Fprintf(&sb, "%s %s\n", state.Emoji, state.Text)
	fmt.Fprintf(&sb, "Guest: %s\n", guestLine(b))
	fmt.Fprintf(&sb, "Stay: %s\n", FormatStay(b, loc))
	fmt.Fprintf(&sb, "Guests: %d\n", b.GuestCount)
	fmt.Fprintf(&sb, "Total: %s (%s payment, due now %s)", FormatPrice(b.TotalAmount), b.PaymentType, FormatPrice(b.PaymentAmount))
	return sb.String()
}

func guestLine(b *model.Booking) string {
	parts := []string{b.GuestName}
	if b.GuestPhone != "" {
		parts = append(parts, b.GuestPhone)
	}
	if b.GuestEmail != "" {
		parts = append(parts, b.GuestEmail)
	}
	return strings.Join(parts, ", ")
}

// FormatProof описание чека
func FormatProof(p *model.PaymentProof) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Proof #%d: %s via %s", p.ID, FormatPrice(p.Amount), p.Method)
	if p.ReferenceNumber != nil && *p.ReferenceNumber != "" {
		fmt.Fprintf(&sb, "\nReference: %s", *p.ReferenceNumber)
	}
	if p.AdminNotes != nil && *p.AdminNotes != "" {
		if reason, notes, ok := model.ParseRejectionNotes(*p.AdminNotes); ok {
			fmt.Fprintf(&sb, "\nRejected: %s", reason)
			if notes != "" {
				fmt.Fprintf(&sb, " (%s)", notes)
			}
		} else {
			fmt.Fprintf(&sb, "\nNotes: %s", *p.AdminNotes)
		}
	}
	return sb.String()
}

var eventTitles = map[model.EventType]string{
	model.EventBookingCreated:     "🆕 New booking",
	model.EventBookingConfirmed:   "✅ Booking confirmed",
	model.EventBookingCancelled:   "❌ Booking cancelled",
	model.EventBookingRescheduled: "🔁 Booking rescheduled",
	model.EventBookingCompleted:   "✔️ Stay completed",
	model.EventProofSubmitted:     "🧾 Payment proof submitted",
	model.EventPaymentVerified:    "💰 Payment verified",
	model.EventPaymentRejected:    "⚠️ Payment rejected",
	model.EventBalancePaid:        "💵 Balance recorded",
	model.EventGatewayPaid:        "💳 Online payment received",
	model.EventGatewayFailed:      "🚫 Online payment failed",
	model.EventCheckInReminder:    "🔔 Check-in tomorrow",
}

// adminMessage текст уведомления в чат администратора
func adminMessage(event model.Event, loc *time.Location) string {
	title, ok := eventTitles[event.Type]
	if !ok {
		title = string(event.Type)
	}

	var sb strings.Builder
	sb.WriteString(title)
	if event.Booking != nil {
		sb.WriteString("\n\n")
		sb.WriteString(FormatBooking(event.Booking, loc))
		if event.Type == model.EventBookingCancelled && event.Booking.RefundAmount != nil {
			pct := 0
			if event.Booking.RefundPercentage != nil {
				pct = *event.Booking.RefundPercentage
			}
			fmt.Fprintf(&sb, "\nRefund: %s (%d%%)", FormatPrice(*event.Booking.RefundAmount), pct)
		}
	}
	if event.Proof != nil {
		sb.WriteString("\n\n")
		sb.WriteString(FormatProof(event.Proof))
	}
	return sb.String()
}
