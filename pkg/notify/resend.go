package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// ResendAPI is the subset of the Resend emails service used by ResendMailer.
type ResendAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailer delivers emails through the Resend API.
type ResendMailer struct {
	api    ResendAPI
	logger *slog.Logger
}

// NewResendMailer creates a mailer backed by a Resend client for apiKey.
func NewResendMailer(apiKey string, logger *slog.Logger) *ResendMailer {
	return NewResendMailerWithAPI(resend.NewClient(apiKey).Emails, logger)
}

// NewResendMailerWithAPI creates a mailer over an existing Resend emails service.
func NewResendMailerWithAPI(api ResendAPI, logger *slog.Logger) *ResendMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResendMailer{api: api, logger: logger}
}

func (m *ResendMailer) SendEmail(ctx context.Context, email Email) error {
	params := &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}

	result, err := m.api.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}

	m.logger.Debug("email sent via resend", "email_id", result.Id, "subject", email.Subject)
	return nil
}
