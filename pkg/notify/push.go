package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

// PushChannel delivers push notifications through an HTTP push gateway.
type PushChannel struct {
	url    string
	secret string
	client *http.Client
}

// NewPushChannel creates a push channel posting to the gateway at url.
// If secret is non-empty, requests are signed with HMAC-SHA256.
func NewPushChannel(url, secret string) *PushChannel {
	return &PushChannel{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *PushChannel) Name() string { return model.ChannelPush }

func (p *PushChannel) Send(ctx context.Context, msg Message) error {
	payload := pushPayload{
		Event:       "listing.matched",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		RecipientID: msg.Recipient.ID,
		Title:       "New listing for " + msg.AlertLabel,
		Body:        msg.Listing.Title,
		AlertID:     msg.AlertID,
		Listing:     msg.Listing,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "listing-alerts/1.0")

	if p.secret != "" {
		sig := computeHMAC(body, []byte(p.secret))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode)
	}
	return nil
}

type pushPayload struct {
	Event       string        `json:"event"`
	Timestamp   string        `json:"timestamp"`
	RecipientID string        `json:"recipientId"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	AlertID     string        `json:"alertId"`
	Listing     model.Listing `json:"listing"`
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
