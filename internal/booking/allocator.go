package booking

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/afalarconm/barnechea-driver/internal/directory"
	"github.com/afalarconm/barnechea-driver/internal/metrics"
	"github.com/afalarconm/barnechea-driver/internal/notify"
)

// Booker books a single slot for a single candidate.
type Booker interface {
	Book(ctx context.Context, slot Slot, cand directory.Candidate) error
}

// StatusSetter updates a user's lifecycle state in the directory.
type StatusSetter interface {
	SetStatus(ctx context.Context, id, status string, notifiedAt *time.Time) error
}

// TextSender delivers a plain text message to a phone number.
type TextSender interface {
	SendText(ctx context.Context, to, text string) error
}

// Allocator hands out a day's open times to the auto-book queue.
type Allocator struct {
	Tx        Booker
	Directory StatusSetter
	Notifier  TextSender
}

// Allocate books as many candidates as possible, first come first served:
// the oldest candidate gets the earliest remaining time, a failed attempt
// falls through to the next time for the same candidate, and a time is
// consumed only by a confirmed booking. Candidates missing required data are
// skipped without touching the gateway. Returns the bookings made and the
// times still unclaimed.
func (a *Allocator) Allocate(ctx context.Context, lineID int, day string, times []string, candidates []directory.Candidate, reservaURL string) (booked []Booking, remaining []string) {
	remaining = append([]string(nil), times...)
	if len(remaining) == 0 || len(candidates) == 0 {
		return nil, remaining
	}

	for _, cand := range candidates {
		if len(remaining) == 0 {
			break
		}
		if !cand.Eligible() {
			metrics.BookingAttempts.WithLabelValues(StageEligibility).Inc()
			log.Warn().Str("user", cand.Display()).Msg("auto-book: skipping candidate missing required fields")
			continue
		}

		success := false
		snapshot := append([]string(nil), remaining...)
		for i, t := range snapshot {
			slot := Slot{LineID: lineID, Date: day, Time: t}
			log.Info().
				Str("user", cand.Display()).
				Str("slot", slot.String()).
				Int("attempt", i+1).
				Int("of", len(snapshot)).
				Msg("auto-book: trying")

			if err := a.Tx.Book(ctx, slot, cand); err != nil {
				metrics.BookingAttempts.WithLabelValues(stageOf(err)).Inc()
				log.Warn().Err(err).Str("user", cand.Display()).Str("slot", slot.String()).Msg("auto-book: attempt failed")
				continue
			}
			metrics.BookingAttempts.WithLabelValues("booked").Inc()

			a.confirm(ctx, cand, slot, reservaURL)
			booked = append(booked, Booking{Candidate: cand, Slot: slot})
			remaining = consume(remaining, t)
			success = true
			log.Info().Str("user", cand.Display()).Str("slot", slot.String()).Msg("auto-book: success")
			break
		}

		if !success {
			log.Warn().
				Str("user", cand.Display()).
				Int("tried", len(snapshot)).
				Msg("auto-book: no slot could be booked")
		}
	}
	return booked, remaining
}

// confirm runs the post-booking side effects. Both are best effort: the
// reservation already exists, so failures are logged and never unwind it.
func (a *Allocator) confirm(ctx context.Context, cand directory.Candidate, slot Slot, reservaURL string) {
	if cand.ID == "" {
		log.Warn().Str("user", cand.Display()).Msg("booked candidate has no id, cannot mark inactive")
	} else if err := a.Directory.SetStatus(ctx, cand.ID, directory.StatusInactive, nil); err != nil {
		log.Error().Err(err).Str("user", cand.Display()).Msg("marking booked candidate inactive failed")
	}

	msg := notify.ConfirmationMessage(slot.Date, slot.Time, reservaURL)
	if err := a.Notifier.SendText(ctx, cand.Phone, msg); err != nil {
		log.Error().Err(err).Str("user", cand.Display()).Msg("booking confirmation message failed")
	}
}

func stageOf(err error) string {
	var attempt *AttemptError
	if errors.As(err, &attempt) {
		return attempt.Stage
	}
	return StageReserve
}

func consume(times []string, used string) []string {
	out := times[:0]
	for _, t := range times {
		if t != used {
			out = append(out, t)
		}
	}
	return out
}
