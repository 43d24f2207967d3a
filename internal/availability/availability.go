package availability

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/afalarconm/barnechea-driver/internal/saltala"
)

// Gateway is the slice of the booking API the availability queries need.
type Gateway interface {
	AvailableDays(ctx context.Context, lineID, months int, rut string) (json.RawMessage, error)
	Reservations(ctx context.Context, lineID int, startTime, endTime, rut string) (json.RawMessage, error)
}

// Query answers "which days have open slots" and "which times on a day" for a
// line. When MockDays/MockTimes are set the gateway is never called, which
// keeps dry runs and tests off the network.
type Query struct {
	Gateway     Gateway
	MonthsAhead int

	// Offset maps a YYYY-MM-DD date to its UTC offset (e.g. "-03:00") so the
	// reservations window covers the whole local day.
	Offset func(date string) string

	MockDays  []string
	MockTimes []string
}

// Days returns the open days for a line, earliest first. A gateway
// no-availability answer is an empty result, not an error.
func (q *Query) Days(ctx context.Context, lineID int, rut string) ([]string, error) {
	if len(q.MockDays) > 0 {
		log.Debug().Int("line_id", lineID).Strs("days", q.MockDays).Msg("using mock days")
		return q.MockDays, nil
	}
	raw, err := q.Gateway.AvailableDays(ctx, lineID, q.MonthsAhead, rut)
	if errors.Is(err, saltala.ErrNoAvailability) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseDays(raw), nil
}

// Times returns the open times on a day for a line, earliest first.
func (q *Query) Times(ctx context.Context, lineID int, date, rut string) ([]string, error) {
	if len(q.MockTimes) > 0 {
		log.Debug().Int("line_id", lineID).Str("date", date).Strs("times", q.MockTimes).Msg("using mock times")
		return q.MockTimes, nil
	}
	off := "-03:00"
	if q.Offset != nil {
		off = q.Offset(date)
	}
	start := date + "T00:00:00" + off
	end := date + "T23:59:59" + off
	raw, err := q.Gateway.Reservations(ctx, lineID, start, end, rut)
	if errors.Is(err, saltala.ErrNoAvailability) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseTimes(raw), nil
}
