// Package notify delivers match notifications through external channels.
package notify

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

// ErrNoAddress is returned when the recipient cannot be reached on a channel.
var ErrNoAddress = errors.New("recipient has no address for channel")

// Message is one notification: a listing that matched an alert, addressed to the alert owner.
type Message struct {
	AlertID    string        `json:"alertId"`
	AlertLabel string        `json:"alertLabel"`
	Recipient  model.User    `json:"recipient"`
	Listing    model.Listing `json:"listing"`
}

// Channel sends notifications to external systems.
type Channel interface {
	// Name returns the channel identifier, matching model.ChannelEmail or model.ChannelPush.
	Name() string

	// Send delivers a message. Implementations must be safe for concurrent use.
	Send(ctx context.Context, msg Message) error
}
