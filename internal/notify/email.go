package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/venue_booking/internal/model"
	"github.com/wneessen/go-mail"
)

const dateLayout = "Mon, 02 Jan 2006"

// MailSender часть mail.Client, которой пользуется EmailNotifier
type MailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSettings параметры почтового сервера
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
}

// NewSMTPClient создаёт клиента go-mail с обязательным TLS
func NewSMTPClient(s SMTPSettings) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if s.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(s.Username),
			mail.WithPassword(s.Password),
		)
	}

	client, err := mail.NewClient(s.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

// EmailNotifier письма гостю. События без адреса гостя пропускаются.
type EmailNotifier struct {
	sender MailSender
	from   string
}

func NewEmailNotifier(sender MailSender, from string) *EmailNotifier {
	return &EmailNotifier{sender: sender, from: from}
}

func (n *EmailNotifier) Notify(ctx context.Context, event model.Event) error {
	if event.Booking == nil || event.Booking.GuestEmail == "" {
		return nil
	}

	subject, body, ok := guestMessage(event)
	if !ok {
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(event.Booking.GuestEmail); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", event.Type, err)
	}
	return nil
}

// guestMessage тема и текст письма. ok=false для событий, о которых гостю не пишем.
func guestMessage(event model.Event) (subject, body string, ok bool) {
	b := event.Booking
	ref := fmt.Sprintf("#%d", b.ID)
	stay := fmt.Sprintf("%s to %s", b.CheckIn.Format(dateLayout), b.CheckOut.Format(dateLayout))

	var lines []string
	switch event.Type {
	case model.EventBookingCreated:
		subject = "Booking " + ref + " received"
		lines = []string{
			"We received your booking request for " + stay + ".",
			"Total: PHP " + b.TotalAmount.StringFixed(2) + ", due now: PHP " + b.PaymentAmount.StringFixed(2) + ".",
		}
	case model.EventBookingConfirmed:
		subject = "Booking " + ref + " confirmed"
		lines = []string{"Your stay " + stay + " is confirmed."}
	case model.EventBookingRescheduled:
		subject = "Booking " + ref + " rescheduled"
		lines = []string{
			"Your booking now covers " + stay + ".",
			"New total: PHP " + b.TotalAmount.StringFixed(2) + ". Please settle PHP " + b.PaymentAmount.StringFixed(2) + ".",
		}
	case model.EventBookingCancelled:
		subject = "Booking " + ref + " cancelled"
		lines = []string{"Your booking for " + stay + " was cancelled."}
		if amount := event.Extra["refund_amount"]; amount != "" {
			lines = append(lines, fmt.Sprintf("Refund: PHP %s (%s%%).", amount, event.Extra["refund_percentage"]))
		}
	case model.EventPaymentVerified:
		subject = "Payment for booking " + ref + " verified"
		lines = []string{"Your payment was verified."}
	case model.EventPaymentRejected:
		subject = "Payment for booking " + ref + " rejected"
		lines = []string{
			"We could not verify your payment (" + strings.ReplaceAll(event.Extra["rejection_reason"], "_", " ") + ").",
			"Please submit a new payment proof.",
		}
	case model.EventBalancePaid:
		subject = "Balance for booking " + ref + " received"
		lines = []string{"Your booking is fully paid."}
	case model.EventGatewayPaid:
		subject = "Payment for booking " + ref + " received"
		lines = []string{"Your card payment went through."}
	case model.EventGatewayFailed:
		subject = "Payment for booking " + ref + " failed"
		lines = []string{"Your card payment did not go through. Please try another payment method."}
	case model.EventCheckInReminder:
		subject = "See you tomorrow"
		lines = []string{"Reminder: check-in for booking " + ref + " is on " + b.CheckIn.Format(dateLayout) + "."}
	default:
		return "", "", false
	}

	body = "Hi " + b.GuestName + ",\n\n" + strings.Join(lines, "\n") + "\n"
	return subject, body, true
}
