// Package booking turns open slots into confirmed appointments. A single
// booking is a two-step transaction against the scheduling gateway; the
// allocator runs those transactions for a queue of candidates in
// registration order.
package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/afalarconm/barnechea-driver/internal/directory"
	"github.com/afalarconm/barnechea-driver/internal/saltala"
)

// Slot is one bookable opening on a line.
type Slot struct {
	LineID int
	Date   string // YYYY-MM-DD
	Time   string // HH:MM
}

// DateTime renders the slot the way the gateway addresses it.
func (s Slot) DateTime() string {
	return s.Date + "T" + s.Time + ":00"
}

func (s Slot) String() string {
	return fmt.Sprintf("line %d %s %s", s.LineID, s.Date, s.Time)
}

// Booking records a confirmed appointment.
type Booking struct {
	Candidate directory.Candidate
	Slot      Slot
}

// Stages a booking attempt can fail in.
const (
	StageEligibility = "eligibility"
	StageBlock       = "block"
	StageReserve     = "reserve"
)

// ErrIneligible means the candidate lacks the data the reservation form
// requires.
var ErrIneligible = errors.New("candidate missing required booking data")

// AttemptError reports which stage of a booking attempt failed.
type AttemptError struct {
	Stage string
	Err   error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("booking %s failed: %v", e.Stage, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// Gateway is the slice of the scheduling API a booking needs.
type Gateway interface {
	BlockSlot(ctx context.Context, lineID int, dateTime, rut string) error
	GenerateReservation(ctx context.Context, lineID int, dateTime string, p saltala.Person) error
	ReleaseBlock(ctx context.Context, lineID int, dateTime, rut string) error
}
