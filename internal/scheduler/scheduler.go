// Package scheduler drives repeated polling cycles in watch mode.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Runner is one polling cycle.
type Runner interface {
	Run(ctx context.Context) (handled bool, err error)
}

// Scheduler runs cycles on a fixed interval, one at a time. Booking against
// a shared slot pool must stay strictly sequential, so a slow cycle delays
// the next tick rather than overlapping it.
type Scheduler struct {
	Runner   Runner
	Interval time.Duration
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Runner.Run(ctx); err != nil {
		log.Error().Err(err).Msg("scheduler: cycle failed")
	}
}
