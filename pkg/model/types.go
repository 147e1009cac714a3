package model

import (
	"strings"
	"time"
)

// Frequency is the notification cadence of an alert.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyImmediate, FrequencyDaily, FrequencyWeekly:
		return true
	}
	return false
}

// Delivery channel names.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// BudgetRange bounds the listing budget an alert accepts.
// A nil Max means there is no upper bound.
type BudgetRange struct {
	Min float64  `json:"min"`
	Max *float64 `json:"max"`
}

// Bounded reports whether the range is narrower than the default [0, ∞).
func (b BudgetRange) Bounded() bool {
	return b.Min > 0 || b.Max != nil
}

// Contains reports whether v lies inside the range, bounds inclusive.
func (b BudgetRange) Contains(v float64) bool {
	if v < b.Min {
		return false
	}
	return b.Max == nil || v <= *b.Max
}

// Filters are the matching criteria of an alert. Empty dimensions do not constrain.
type Filters struct {
	Categories []string    `json:"categories"`
	Locations  []string    `json:"locations"`
	Keywords   []string    `json:"keywords"`
	Budget     BudgetRange `json:"budget"`
}

// Empty reports whether no dimension constrains matching.
func (f Filters) Empty() bool {
	return len(f.Categories) == 0 && len(f.Locations) == 0 && len(f.Keywords) == 0 && !f.Budget.Bounded()
}

// Channels holds the delivery preferences of an alert.
type Channels struct {
	EmailEnabled bool `json:"emailEnabled"`
	PushEnabled  bool `json:"pushEnabled"`
}

// Enabled returns the enabled channel names in a stable order.
func (c Channels) Enabled() []string {
	var names []string
	if c.EmailEnabled {
		names = append(names, ChannelEmail)
	}
	if c.PushEnabled {
		names = append(names, ChannelPush)
	}
	return names
}

// Alert is a persisted, owner-scoped set of filters plus delivery preferences.
type Alert struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Label   string `json:"label"`
	Filters
	Channels       Channels   `json:"channels"`
	Frequency      Frequency  `json:"frequency"`
	Active         bool       `json:"active"`
	MatchCount     int64      `json:"matchCount"`
	LastNotifiedAt *time.Time `json:"lastNotifiedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Listing is the projection of a newly published listing consumed by matching.
type Listing struct {
	ID       string  `json:"listingId"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Location string  `json:"location"`
	Budget   float64 `json:"budget"`
}

// User is the projection of a platform user used to address notifications.
type User struct {
	ID          string  `json:"id"`
	Email       *string `json:"email"`
	DisplayName string  `json:"displayName"`
}

// HasEmail reports whether the user can be reached by email.
func (u User) HasEmail() bool {
	return u.Email != nil && strings.TrimSpace(*u.Email) != ""
}
