package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/iliyamo/exam-registration/internal/booking"
)

// DefaultFrom is used when no sender address is configured.
const DefaultFrom = "onboarding@resend.dev"

// Sender delivers a rendered email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// ResendSender sends through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender returns a sender bound to apiKey.
func NewResendSender(apiKey, from string) *ResendSender {
	if from == "" {
		from = DefaultFrom
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, e Email) error {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{e.To},
		Subject: e.Subject,
		Html:    e.HTML,
		Text:    e.Text,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	slog.Default().With("component", "notify").Info("email sent", "to", e.To, "id", sent.Id)
	return nil
}

// LogSender writes emails to the log instead of sending them. It is
// used when no API key is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(_ context.Context, e Email) error {
	l := s.Logger
	if l == nil {
		l = slog.Default().With("component", "notify")
	}
	l.Info("email delivery disabled, message logged", "to", e.To, "subject", e.Subject)
	return nil
}

// NewSender picks Resend when apiKey is set and the log sender
// otherwise.
func NewSender(apiKey, from string) Sender {
	if apiKey == "" {
		return LogSender{}
	}
	return NewResendSender(apiKey, from)
}

// DirectNotifier renders and sends confirmations inline. It satisfies
// booking.Notifier.
type DirectNotifier struct {
	composer *Composer
	sender   Sender
}

// NewDirectNotifier returns a notifier that sends through sender.
func NewDirectNotifier(sender Sender) *DirectNotifier {
	return &DirectNotifier{composer: NewComposer(), sender: sender}
}

func (n *DirectNotifier) NotifyConfirmation(ctx context.Context, c booking.Confirmation) error {
	if c.Email == "" {
		return fmt.Errorf("confirmation %s has no recipient", c.ConfirmationCode)
	}
	email, err := n.composer.Confirmation(c)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, email)
}
