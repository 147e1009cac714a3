package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESAPI is the subset of the SES v2 client used by SESMailer.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer delivers emails through AWS SES.
type SESMailer struct {
	api    SESAPI
	logger *slog.Logger
}

// NewSESMailer loads the default AWS configuration for region and creates an SES mailer.
func NewSESMailer(ctx context.Context, region string, logger *slog.Logger) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESMailerWithAPI(sesv2.NewFromConfig(cfg), logger), nil
}

// NewSESMailerWithAPI creates a mailer over an existing SES client.
func NewSESMailerWithAPI(api SESAPI, logger *slog.Logger) *SESMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SESMailer{api: api, logger: logger}
}

func (m *SESMailer) SendEmail(ctx context.Context, email Email) error {
	var body types.Body
	if email.HTML != "" {
		body.Html = &types.Content{Data: &email.HTML}
	}
	if email.Text != "" {
		body.Text = &types.Content{Data: &email.Text}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: &email.From,
		Destination: &types.Destination{
			ToAddresses: []string{email.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &email.Subject},
				Body:    &body,
			},
		},
	}

	result, err := m.api.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	var id string
	if result.MessageId != nil {
		id = *result.MessageId
	}
	m.logger.Debug("email sent via ses", "message_id", id, "subject", email.Subject)
	return nil
}
