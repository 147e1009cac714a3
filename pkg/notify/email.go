package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

// Email is a single outbound email.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer hands emails to a delivery provider.
type Mailer interface {
	SendEmail(ctx context.Context, email Email) error
}

// EmailChannel notifies recipients by email.
type EmailChannel struct {
	mailer   Mailer
	composer Composer
	from     string
}

// NewEmailChannel creates an email channel. A nil composer selects PlainComposer.
func NewEmailChannel(mailer Mailer, composer Composer, from string) *EmailChannel {
	if composer == nil {
		composer = PlainComposer{}
	}
	return &EmailChannel{
		mailer:   mailer,
		composer: composer,
		from:     from,
	}
}

func (c *EmailChannel) Name() string { return model.ChannelEmail }

func (c *EmailChannel) Send(ctx context.Context, msg Message) error {
	if !msg.Recipient.HasEmail() {
		return ErrNoAddress
	}

	content, err := c.composer.Compose(msg)
	if err != nil {
		return fmt.Errorf("compose email: %w", err)
	}

	return c.mailer.SendEmail(ctx, Email{
		From:    c.from,
		To:      *msg.Recipient.Email,
		Subject: content.Subject,
		HTML:    content.HTML,
		Text:    content.Text,
	})
}

// LogMailer only logs emails. Used for local development.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that writes emails to the log.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendEmail(_ context.Context, email Email) error {
	m.logger.Info("email", "from", email.From, "to", email.To, "subject", email.Subject)
	return nil
}
