package notify_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
	"github.com/ogulcanaydogan/listing-alerts/pkg/notify"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu     sync.Mutex
	emails []notify.Email
	err    error
}

func (m *recordingMailer) SendEmail(_ context.Context, email notify.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, email)
	return m.err
}

func TestEmailChannel_Send(t *testing.T) {
	mailer := &recordingMailer{}
	ch := notify.NewEmailChannel(mailer, notify.PlainComposer{ListingURL: "https://example.com/listings/%s"}, "alerts@example.com")
	assert.Equal(t, "email", ch.Name())

	require.NoError(t, ch.Send(context.Background(), testMessage()))
	require.Len(t, mailer.emails, 1)

	sent := mailer.emails[0]
	assert.Equal(t, "alerts@example.com", sent.From)
	assert.Equal(t, "ana@example.com", sent.To)
	assert.Contains(t, sent.Subject, "Deep clean of a 3-room flat")
	assert.Contains(t, sent.Subject, "Cleaning · Sofia")
	assert.Contains(t, sent.Text, "Hi Ana")
	assert.Contains(t, sent.Text, "https://example.com/listings/listing-1")
	assert.Contains(t, sent.HTML, `href="https://example.com/listings/listing-1"`)
}

func TestEmailChannel_Send_NoAddress(t *testing.T) {
	mailer := &recordingMailer{}
	ch := notify.NewEmailChannel(mailer, nil, "alerts@example.com")

	msg := testMessage()
	msg.Recipient.Email = nil
	assert.ErrorIs(t, ch.Send(context.Background(), msg), notify.ErrNoAddress)
	assert.Empty(t, mailer.emails)
}

func TestEmailChannel_Send_MailerError(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	ch := notify.NewEmailChannel(mailer, nil, "alerts@example.com")

	err := ch.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
}

func TestPlainComposer_EscapesHTML(t *testing.T) {
	msg := testMessage()
	msg.Listing.Title = "<script>alert(1)</script>"
	msg.Recipient.DisplayName = ""

	content, err := notify.PlainComposer{}.Compose(msg)
	require.NoError(t, err)
	assert.NotContains(t, content.HTML, "<script>")
	assert.Contains(t, content.HTML, "&lt;script&gt;")
	assert.Contains(t, content.Text, "Hi there")
	assert.NotContains(t, content.HTML, "View listing")
}

type fakeResend struct {
	params *resend.SendEmailRequest
	err    error
}

func (f *fakeResend) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "email-123"}, nil
}

func TestResendMailer_SendEmail(t *testing.T) {
	api := &fakeResend{}
	m := notify.NewResendMailerWithAPI(api, slog.Default())

	err := m.SendEmail(context.Background(), notify.Email{
		From: "alerts@example.com", To: "ana@example.com", Subject: "Hi", HTML: "<p>x</p>", Text: "x",
	})
	require.NoError(t, err)
	require.NotNil(t, api.params)
	assert.Equal(t, []string{"ana@example.com"}, api.params.To)
	assert.Equal(t, "alerts@example.com", api.params.From)
	assert.Equal(t, "<p>x</p>", api.params.Html)
	assert.Equal(t, "x", api.params.Text)

	api.err = errors.New("rate limited")
	err = m.SendEmail(context.Background(), notify.Email{To: "ana@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resend send")
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	id := "ses-1"
	return &sesv2.SendEmailOutput{MessageId: &id}, nil
}

func TestSESMailer_SendEmail(t *testing.T) {
	api := &fakeSES{}
	m := notify.NewSESMailerWithAPI(api, slog.Default())

	err := m.SendEmail(context.Background(), notify.Email{
		From: "alerts@example.com", To: "ana@example.com", Subject: "Hi", Text: "plain only",
	})
	require.NoError(t, err)
	require.NotNil(t, api.input)
	assert.Equal(t, "alerts@example.com", *api.input.FromEmailAddress)
	assert.Equal(t, []string{"ana@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Hi", *api.input.Content.Simple.Subject.Data)
	assert.Nil(t, api.input.Content.Simple.Body.Html)
	assert.Equal(t, "plain only", *api.input.Content.Simple.Body.Text.Data)

	api.err = errors.New("throttled")
	assert.Error(t, m.SendEmail(context.Background(), notify.Email{To: "ana@example.com"}))
}

func TestLogMailer_SendEmail(t *testing.T) {
	var buf bytes.Buffer
	m := notify.NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.SendEmail(context.Background(), notify.Email{To: "ana@example.com", Subject: "Hello"}))
	assert.Contains(t, buf.String(), "ana@example.com")
	assert.Contains(t, buf.String(), "Hello")
}

func TestChannels_ImplementInterface(t *testing.T) {
	var _ notify.Channel = notify.NewEmailChannel(&recordingMailer{}, nil, "")
	var _ notify.Channel = notify.NewPushChannel("http://localhost", "")
	var _ notify.Mailer = &notify.LogMailer{}
	assert.Equal(t, model.ChannelPush, notify.NewPushChannel("http://localhost", "").Name())
}
