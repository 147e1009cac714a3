package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

var (
	// ErrNotFound is returned when a record does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded is returned by CreateAlert when the owner already holds the maximum number of alerts.
	ErrQuotaExceeded = errors.New("alert quota exceeded")
)

// Storage defines the persistence layer for alerts and the user directory.
type Storage interface {
	// GetAlert retrieves an alert owned by ownerID.
	GetAlert(ctx context.Context, id, ownerID string) (*model.Alert, error)

	// ListAlertsByOwner returns every alert of an owner, newest first.
	ListAlertsByOwner(ctx context.Context, ownerID string) ([]model.Alert, error)

	// ListActiveImmediateAlerts returns the dispatch candidates.
	ListActiveImmediateAlerts(ctx context.Context) ([]model.Alert, error)

	// CreateAlert inserts an alert unless its owner already holds maxPerOwner alerts.
	// The count and the insert happen in one statement. maxPerOwner <= 0 disables the check.
	CreateAlert(ctx context.Context, alert *model.Alert, maxPerOwner int) error

	// UpdateAlert replaces the mutable fields of an alert owned by alert.OwnerID.
	UpdateAlert(ctx context.Context, alert *model.Alert) error

	// DeleteAlert removes an alert owned by ownerID.
	DeleteAlert(ctx context.Context, id, ownerID string) error

	// CountAlertsByOwner returns how many alerts an owner holds.
	CountAlertsByOwner(ctx context.Context, ownerID string) (int, error)

	// IncrementMatchStats bumps match_count and sets last_notified_at.
	IncrementMatchStats(ctx context.Context, id string, at time.Time) error

	// GetUsersByIDs resolves users in one batch. Unknown ids are absent from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]model.User, error)

	// UpsertUser creates or updates a user directory entry.
	UpsertUser(ctx context.Context, user *model.User) error

	// Migrate applies pending schema migrations.
	Migrate(ctx context.Context) error

	// Close releases resources.
	Close() error
}
