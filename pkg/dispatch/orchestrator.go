package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/listing-alerts/pkg/alerting"
	"github.com/ogulcanaydogan/listing-alerts/pkg/matcher"
	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
)

// CandidateSource lists the alerts eligible for immediate dispatch.
type CandidateSource interface {
	ListActiveImmediateAlerts(ctx context.Context) ([]model.Alert, error)
}

// Response is returned to the caller that published the listing.
type Response struct {
	Success        bool   `json:"success"`
	Notified       int    `json:"notified"`
	MatchingAlerts int    `json:"matchingAlerts"`
	Message        string `json:"message"`
}

// Orchestrator runs candidate lookup, matching, fan-out and stats for one listing.
type Orchestrator struct {
	candidates CandidateSource
	dispatcher *Dispatcher
	stats      *StatsUpdater
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source used for last-notified timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(candidates CandidateSource, dispatcher *Dispatcher, stats *StatsUpdater, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		candidates: candidates,
		dispatcher: dispatcher,
		stats:      stats,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Dispatch notifies every alert matching listing. Zero matches is a success.
// Only invalid input and candidate lookup failures are returned as errors.
func (o *Orchestrator) Dispatch(ctx context.Context, listing model.Listing) (*Response, error) {
	if err := alerting.ValidateListing(listing); err != nil {
		return nil, err
	}

	candidates, err := o.candidates.ListActiveImmediateAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidate alerts: %w", err)
	}

	matched := matcher.Filter(listing, candidates)
	if len(matched) == 0 {
		o.logger.Debug("no matching alerts", "listing_id", listing.ID, "candidates", len(candidates))
		return &Response{Success: true, Message: "No matching alerts"}, nil
	}

	res := o.dispatcher.Dispatch(ctx, listing, matched)
	o.stats.Track(matched, o.now())

	o.logger.Info("listing dispatched",
		"listing_id", listing.ID,
		"candidates", len(candidates),
		"matched", res.Matched,
		"sent", res.Sent,
		"failed", res.Failed,
		"skipped", res.Skipped,
	)

	return &Response{
		Success:        true,
		Notified:       res.Sent,
		MatchingAlerts: res.Matched,
		Message:        fmt.Sprintf("Sent %d notifications for %d matching alerts", res.Sent, res.Matched),
	}, nil
}

// Wait blocks until background stats updates have finished.
func (o *Orchestrator) Wait() {
	o.stats.Wait()
}
