// Package orchestrator runs one polling cycle: refresh the user queue, find
// open slots on the target lines, book them for the auto-book queue and tell
// everyone else.
package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/afalarconm/barnechea-driver/internal/availability"
	"github.com/afalarconm/barnechea-driver/internal/booking"
	"github.com/afalarconm/barnechea-driver/internal/config"
	"github.com/afalarconm/barnechea-driver/internal/directory"
	"github.com/afalarconm/barnechea-driver/internal/discovery"
	"github.com/afalarconm/barnechea-driver/internal/metrics"
	"github.com/afalarconm/barnechea-driver/internal/notify"
	"github.com/afalarconm/barnechea-driver/internal/saltala"
)

// Directory is the user queue storage.
type Directory interface {
	FetchActive(ctx context.Context) ([]directory.Candidate, error)
	FetchPendingOverdue(ctx context.Context, olderThan time.Duration) ([]directory.Candidate, error)
	SetStatus(ctx context.Context, id, status string, notifiedAt *time.Time) error
}

// Notifier delivers WhatsApp messages.
type Notifier interface {
	SendText(ctx context.Context, to, text string) error
	SendTemplate(ctx context.Context, to, template string, params, buttonPayloads []string) error
}

// LineFinder resolves target line names to ids.
type LineFinder interface {
	Targets(ctx context.Context) map[string]int
}

// Availability answers open days and times per line.
type Availability interface {
	Days(ctx context.Context, lineID int, rut string) ([]string, error)
	Times(ctx context.Context, lineID int, date, rut string) ([]string, error)
}

// Allocator books a day's times for the auto-book queue.
type Allocator interface {
	Allocate(ctx context.Context, lineID int, day string, times []string, candidates []directory.Candidate, reservaURL string) ([]booking.Booking, []string)
}

// Orchestrator wires one cycle's collaborators.
type Orchestrator struct {
	Cfg          config.Config
	Directory    Directory
	Notifier     Notifier
	Finder       LineFinder
	Availability Availability
	Allocator    Allocator
}

// New builds an orchestrator around real clients.
func New(cfg config.Config) *Orchestrator {
	gateway := saltala.New(saltala.Config{
		BaseURL:   cfg.SaltalaBase,
		PublicURL: cfg.PublicURL,
	})
	dir := directory.New(directory.Config{
		BaseURL: cfg.KapsoBase,
		APIKey:  cfg.KapsoAPIKey,
	})
	wa := notify.New(notify.Config{
		BaseURL:       cfg.KapsoBase,
		APIKey:        cfg.KapsoAPIKey,
		PhoneNumberID: cfg.KapsoPhoneNumberID,
	})
	return &Orchestrator{
		Cfg:       cfg,
		Directory: dir,
		Notifier:  wa,
		Finder: &discovery.Finder{
			Gateway:        gateway,
			TargetNames:    cfg.TargetLineNames,
			UnitHint:       cfg.UnitHint,
			CorporationID:  cfg.CorporationID,
			FallbackLineID: cfg.FallbackLineID,
			MockLineID:     cfg.MockLineID,
			MockLineName:   cfg.MockLineName,
		},
		Availability: &availability.Query{
			Gateway:     gateway,
			MonthsAhead: cfg.MonthsAhead,
			Offset:      cfg.OffsetForDate,
			MockDays:    cfg.MockDays,
			MockTimes:   cfg.MockTimes,
		},
		Allocator: &booking.Allocator{
			Tx:        &booking.Transaction{Gateway: gateway},
			Directory: dir,
			Notifier:  wa,
		},
	}
}

// Run executes one cycle. handled is true when availability was found and
// processed, whether by booking or by notification.
func (o *Orchestrator) Run(ctx context.Context) (handled bool, err error) {
	cycle := uuid.NewString()[:8]
	logger := log.With().Str("cycle", cycle).Logger()
	start := time.Now()

	handled, err = o.run(logger.WithContext(ctx))

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		metrics.CyclesTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Dur("took", time.Since(start)).Msg("cycle failed")
	case handled:
		metrics.CyclesTotal.WithLabelValues("handled").Inc()
		logger.Info().Dur("took", time.Since(start)).Msg("cycle handled availability")
	default:
		metrics.CyclesTotal.WithLabelValues("idle").Inc()
		logger.Info().Dur("took", time.Since(start)).Msg("cycle idle")
	}
	return handled, err
}

func (o *Orchestrator) run(ctx context.Context) (bool, error) {
	logger := log.Ctx(ctx)

	o.reactivatePending(ctx)

	active, err := o.Directory.FetchActive(ctx)
	if err != nil {
		return false, err
	}
	// the directory already orders by registration, but the queue discipline
	// is ours to guarantee
	directory.SortFIFO(active)
	autobook, notifyOnly := directory.SplitByMode(active)
	logger.Info().Int("active", len(active)).Int("autobook", len(autobook)).Int("notify", len(notifyOnly)).Msg("queue loaded")

	targets := o.Finder.Targets(ctx)
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		handled, err := o.checkLine(ctx, name, targets[name], autobook, notifyOnly)
		if err != nil {
			logger.Error().Err(err).Str("line", name).Msg("line check failed")
			continue
		}
		if handled {
			return true, nil
		}
	}
	logger.Info().Msg("no availability at the moment")
	return false, nil
}

// checkLine handles one target line. It reports handled=true when the line
// had availability, so the caller stops after the first productive line.
func (o *Orchestrator) checkLine(ctx context.Context, name string, lineID int, autobook, notifyOnly []directory.Candidate) (bool, error) {
	logger := log.Ctx(ctx)

	days, err := o.Availability.Days(ctx, lineID, "")
	if err != nil {
		return false, err
	}
	if len(days) == 0 {
		return false, nil
	}
	firstDay := days[0]
	logger.Info().Str("line", name).Str("first_day", firstDay).Int("days", len(days)).Msg("availability found")

	times, err := o.Availability.Times(ctx, lineID, firstDay, "")
	if err != nil {
		logger.Warn().Err(err).Str("line", name).Str("day", firstDay).Msg("times lookup failed")
		times = nil
	}

	reservaURL := notify.ReservationURL(o.Cfg.PublicURL, lineID)

	booked, remaining := o.Allocator.Allocate(ctx, lineID, firstDay, times, autobook, reservaURL)
	logger.Info().Str("line", name).Int("booked", len(booked)).Int("remaining_times", len(remaining)).Msg("allocation done")

	bookedIDs := map[string]bool{}
	for _, b := range booked {
		bookedIDs[b.Candidate.ID] = true
	}

	// everyone not booked hears about the opening and moves to pending
	var recipients []directory.Candidate
	recipients = append(recipients, notifyOnly...)
	for _, c := range autobook {
		if c.ID == "" || !bookedIDs[c.ID] {
			recipients = append(recipients, c)
		}
	}
	if len(recipients) > 0 {
		msg := notify.AvailabilityMessage(name, firstDay, times, days, reservaURL)
		o.broadcast(ctx, recipients, msg)
	}
	return true, nil
}

// broadcast sends the availability message and marks each reached candidate
// pending. A candidate whose message failed stays active so the next cycle
// retries.
func (o *Orchestrator) broadcast(ctx context.Context, recipients []directory.Candidate, msg string) {
	logger := log.Ctx(ctx)
	now := time.Now().UTC()

	for _, c := range recipients {
		if c.Phone == "" {
			logger.Warn().Str("user", c.Display()).Msg("candidate has no phone, skipping broadcast")
			continue
		}
		if err := o.Notifier.SendText(ctx, c.Phone, msg); err != nil {
			logger.Error().Err(err).Str("user", c.Display()).Msg("availability message failed")
			continue
		}
		if c.ID == "" {
			continue
		}
		if err := o.Directory.SetStatus(ctx, c.ID, directory.StatusPending, &now); err != nil {
			logger.Error().Err(err).Str("user", c.Display()).Msg("marking candidate pending failed")
		}
	}
}

// reactivatePending walks pending users whose notification has gone stale:
// long-stale ones rejoin the active queue (their registration timestamp, and
// with it their queue position, is untouched), the rest get a follow-up nudge.
func (o *Orchestrator) reactivatePending(ctx context.Context) {
	logger := log.Ctx(ctx)

	pending, err := o.Directory.FetchPendingOverdue(ctx, o.Cfg.FollowupAfter)
	if err != nil {
		logger.Error().Err(err).Msg("fetching pending users failed")
		return
	}
	if len(pending) == 0 {
		return
	}

	reactivateCutoff := time.Now().UTC().Add(-o.Cfg.ReactivateAfter)
	now := time.Now().UTC()

	for _, c := range pending {
		notifiedAt, ok := directory.ParseTimestamp(c.NotifiedAt)
		if ok && notifiedAt.UTC().Before(reactivateCutoff) {
			if err := o.Directory.SetStatus(ctx, c.ID, directory.StatusActive, nil); err != nil {
				logger.Error().Err(err).Str("user", c.Display()).Msg("reactivating user failed")
				continue
			}
			logger.Info().Str("user", c.Display()).Msg("pending user reactivated")
			continue
		}

		err := o.Notifier.SendTemplate(ctx, c.Phone, o.Cfg.FollowupTemplate,
			[]string{c.FirstName}, []string{"mantener", "salir"})
		if err != nil {
			logger.Error().Err(err).Str("user", c.Display()).Msg("follow-up message failed")
			continue
		}
		// refresh the stamp so the same user is not nudged every cycle
		if err := o.Directory.SetStatus(ctx, c.ID, directory.StatusPending, &now); err != nil {
			logger.Error().Err(err).Str("user", c.Display()).Msg("refreshing notified_at failed")
		}
	}
}
