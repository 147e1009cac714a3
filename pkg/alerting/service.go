// Package alerting implements owner-scoped management of listing alerts.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ogulcanaydogan/listing-alerts/pkg/labels"
	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
	"github.com/ogulcanaydogan/listing-alerts/pkg/storage"
)

// DefaultMaxAlertsPerOwner is the quota applied when none is configured.
const DefaultMaxAlertsPerOwner = 10

// CreateInput describes a new alert. Nil channel flags select the defaults
// (email on, push off); an empty frequency selects immediate.
type CreateInput struct {
	OwnerID      string
	Label        string
	Filters      model.Filters
	EmailEnabled *bool
	PushEnabled  *bool
	Frequency    model.Frequency
}

// Patch lists the fields to change on an alert. Nil fields are left untouched.
// An empty Label regenerates it from the resulting filters.
type Patch struct {
	Label          *string
	Categories     *[]string
	Locations      *[]string
	Keywords       *[]string
	MinBudget      *float64
	MaxBudget      *float64
	ClearMaxBudget bool
	EmailEnabled   *bool
	PushEnabled    *bool
	Frequency      *model.Frequency
	Active         *bool
}

// Service enforces alert invariants on top of the store.
type Service struct {
	storage     storage.Storage
	labels      *labels.Generator
	maxPerOwner int
	logger      *slog.Logger
}

// NewService creates an alert service. maxPerOwner <= 0 selects DefaultMaxAlertsPerOwner.
func NewService(store storage.Storage, gen *labels.Generator, maxPerOwner int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if gen == nil {
		gen = labels.NewGenerator(nil)
	}
	if maxPerOwner <= 0 {
		maxPerOwner = DefaultMaxAlertsPerOwner
	}
	return &Service{
		storage:     store,
		labels:      gen,
		maxPerOwner: maxPerOwner,
		logger:      logger,
	}
}

// Create validates the input, applies defaults and inserts the alert under the owner quota.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Alert, error) {
	owner := strings.TrimSpace(in.OwnerID)
	if owner == "" {
		return nil, invalid("ownerId", "You must be signed in to create alerts.")
	}

	filters := normalizeFilters(in.Filters)
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	frequency := in.Frequency
	if frequency == "" {
		frequency = model.FrequencyImmediate
	}
	if err := validateFrequency(frequency); err != nil {
		return nil, err
	}

	alert := &model.Alert{
		OwnerID:   owner,
		Label:     strings.TrimSpace(in.Label),
		Filters:   filters,
		Channels:  model.Channels{EmailEnabled: true},
		Frequency: frequency,
		Active:    true,
	}
	if in.EmailEnabled != nil {
		alert.Channels.EmailEnabled = *in.EmailEnabled
	}
	if in.PushEnabled != nil {
		alert.Channels.PushEnabled = *in.PushEnabled
	}
	if alert.Label == "" {
		alert.Label = s.labels.Generate(filters)
	}

	if err := s.storage.CreateAlert(ctx, alert, s.maxPerOwner); err != nil {
		if errors.Is(err, storage.ErrQuotaExceeded) {
			s.logger.Info("alert quota exceeded", "owner_id", owner, "limit", s.maxPerOwner)
			return nil, quotaExceeded(s.maxPerOwner)
		}
		return nil, fmt.Errorf("create alert: %w", err)
	}

	s.logger.Info("alert created", "alert_id", alert.ID, "owner_id", owner, "label", alert.Label)
	return alert, nil
}

// List returns the alerts of an owner.
func (s *Service) List(ctx context.Context, ownerID string) ([]model.Alert, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, invalid("ownerId", "You must be signed in to view alerts.")
	}
	alerts, err := s.storage.ListAlertsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	return alerts, nil
}

// Get returns one alert of an owner.
func (s *Service) Get(ctx context.Context, id, ownerID string) (*model.Alert, error) {
	alert, err := s.storage.GetAlert(ctx, id, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return alert, nil
}

// Update applies a patch to an alert of the owner.
func (s *Service) Update(ctx context.Context, id, ownerID string, p Patch) (*model.Alert, error) {
	alert, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if p.Categories != nil {
		alert.Categories = *p.Categories
	}
	if p.Locations != nil {
		alert.Locations = *p.Locations
	}
	if p.Keywords != nil {
		alert.Keywords = *p.Keywords
	}
	if p.MinBudget != nil {
		alert.Budget.Min = *p.MinBudget
	}
	switch {
	case p.ClearMaxBudget:
		alert.Budget.Max = nil
	case p.MaxBudget != nil:
		v := *p.MaxBudget
		alert.Budget.Max = &v
	}
	alert.Filters = normalizeFilters(alert.Filters)
	if err := validateFilters(alert.Filters); err != nil {
		return nil, err
	}

	if p.Frequency != nil {
		if err := validateFrequency(*p.Frequency); err != nil {
			return nil, err
		}
		alert.Frequency = *p.Frequency
	}
	if p.EmailEnabled != nil {
		alert.Channels.EmailEnabled = *p.EmailEnabled
	}
	if p.PushEnabled != nil {
		alert.Channels.PushEnabled = *p.PushEnabled
	}
	if p.Active != nil {
		alert.Active = *p.Active
	}
	if p.Label != nil {
		alert.Label = strings.TrimSpace(*p.Label)
		if alert.Label == "" {
			alert.Label = s.labels.Generate(alert.Filters)
		}
	}

	if err := s.storage.UpdateAlert(ctx, alert); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("update alert: %w", err)
	}

	s.logger.Info("alert updated", "alert_id", id, "owner_id", ownerID)
	return alert, nil
}

// Delete removes an alert of the owner.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.storage.DeleteAlert(ctx, id, ownerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return notFound(id)
		}
		return fmt.Errorf("delete alert: %w", err)
	}
	s.logger.Info("alert deleted", "alert_id", id, "owner_id", ownerID)
	return nil
}
