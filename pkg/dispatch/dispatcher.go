// Package dispatch finds the alerts matching a published listing and notifies their owners.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
	"github.com/ogulcanaydogan/listing-alerts/pkg/notify"
	"golang.org/x/time/rate"
)

const (
	DefaultWorkers     = 50
	DefaultSendTimeout = 10 * time.Second
)

// UserDirectory resolves alert owners to notification recipients.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]model.User, error)
}

// Options tune the dispatcher. Zero values select the defaults.
type Options struct {
	Workers       int
	SendTimeout   time.Duration
	RatePerSecond float64 // 0 disables rate limiting
}

// Result summarizes one fan-out.
type Result struct {
	Matched   int `json:"matched"`
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Dispatcher sends one notification per (alert, enabled channel, recipient) on a bounded worker pool.
type Dispatcher struct {
	users       UserDirectory
	channels    map[string]notify.Channel
	workers     int
	sendTimeout time.Duration
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channels, keyed by their Name.
func NewDispatcher(users UserDirectory, channels []notify.Channel, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		users:       users,
		channels:    make(map[string]notify.Channel, len(channels)),
		workers:     opts.Workers,
		sendTimeout: opts.SendTimeout,
		logger:      logger,
	}
	if d.workers <= 0 {
		d.workers = DefaultWorkers
	}
	if d.sendTimeout <= 0 {
		d.sendTimeout = DefaultSendTimeout
	}
	if opts.RatePerSecond > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(1, int(opts.RatePerSecond)))
	}
	for _, ch := range channels {
		d.channels[ch.Name()] = ch
	}
	return d
}

type job struct {
	channel notify.Channel
	msg     notify.Message
}

// Dispatch notifies the owners of the matched alerts about listing. Send
// failures are logged and counted, never returned. The fan-out is detached
// from ctx cancellation and always runs to completion.
func (d *Dispatcher) Dispatch(ctx context.Context, listing model.Listing, alerts []model.Alert) Result {
	res := Result{Matched: len(alerts)}
	if len(alerts) == 0 {
		return res
	}
	ctx = context.WithoutCancel(ctx)

	users := d.resolveRecipients(ctx, alerts)

	var jobs []job
	for _, a := range alerts {
		enabled := a.Channels.Enabled()
		user, ok := users[a.OwnerID]
		if !ok {
			d.logger.Warn("alert owner not found, skipping", "alert_id", a.ID, "owner_id", a.OwnerID)
			res.Skipped += len(enabled)
			continue
		}
		for _, name := range enabled {
			ch, ok := d.channels[name]
			if !ok {
				d.logger.Debug("channel not configured, skipping", "alert_id", a.ID, "channel", name)
				res.Skipped++
				continue
			}
			if name == model.ChannelEmail && !user.HasEmail() {
				d.logger.Debug("recipient has no email, skipping", "alert_id", a.ID, "owner_id", a.OwnerID)
				res.Skipped++
				continue
			}
			jobs = append(jobs, job{
				channel: ch,
				msg: notify.Message{
					AlertID:    a.ID,
					AlertLabel: a.Label,
					Recipient:  user,
					Listing:    listing,
				},
			})
		}
	}

	outcomes := d.run(ctx, jobs)
	res.Attempted = len(jobs)
	for i, err := range outcomes {
		if err != nil {
			d.logger.Warn("notification failed",
				"alert_id", jobs[i].msg.AlertID,
				"channel", jobs[i].channel.Name(),
				"listing_id", listing.ID,
				"error", err,
			)
			res.Failed++
			continue
		}
		res.Sent++
	}
	return res
}

// resolveRecipients fetches every distinct owner in one batch. A lookup
// failure leaves all alerts without a recipient.
func (d *Dispatcher) resolveRecipients(ctx context.Context, alerts []model.Alert) map[string]model.User {
	seen := make(map[string]struct{}, len(alerts))
	ids := make([]string, 0, len(alerts))
	for _, a := range alerts {
		if _, ok := seen[a.OwnerID]; ok {
			continue
		}
		seen[a.OwnerID] = struct{}{}
		ids = append(ids, a.OwnerID)
	}

	users, err := d.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		d.logger.Error("resolve recipients", "owners", len(ids), "error", err)
		return nil
	}
	return users
}

// run executes all jobs on the worker pool and returns each outcome by job index.
func (d *Dispatcher) run(ctx context.Context, jobs []job) []error {
	outcomes := make([]error, len(jobs))
	if len(jobs) == 0 {
		return outcomes
	}

	queue := make(chan int, len(jobs))
	for i := range jobs {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < min(d.workers, len(jobs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				outcomes[i] = d.send(ctx, jobs[i])
			}
		}()
	}
	wg.Wait()
	return outcomes
}

func (d *Dispatcher) send(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel %s panicked: %v", j.channel.Name(), r)
		}
	}()

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return j.channel.Send(sendCtx, j.msg)
}
