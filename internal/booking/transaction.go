package booking

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/afalarconm/barnechea-driver/internal/directory"
	"github.com/afalarconm/barnechea-driver/internal/saltala"
)

// Transaction books one slot for one candidate: temporary block first, then
// the reservation itself. A failed reservation releases the block so the
// slot returns to the public pool.
type Transaction struct {
	Gateway Gateway
}

// Book runs the two-step booking. Errors are always *AttemptError so the
// caller can tell a doomed candidate (eligibility) from a lost slot race
// (block) from a half-done transaction (reserve).
func (tx *Transaction) Book(ctx context.Context, slot Slot, cand directory.Candidate) error {
	if !cand.Eligible() {
		return &AttemptError{Stage: StageEligibility, Err: ErrIneligible}
	}

	dateTime := slot.DateTime()
	blockRut := directory.NormalizeRut(cand.Rut)

	log.Info().Str("slot", slot.String()).Str("user", cand.Display()).Msg("blocking slot")
	if err := tx.Gateway.BlockSlot(ctx, slot.LineID, dateTime, blockRut); err != nil {
		return &AttemptError{Stage: StageBlock, Err: err}
	}

	person := saltala.Person{
		Rut:       cand.Rut,
		FirstName: cand.FirstName,
		LastName:  cand.LastName,
		Email:     cand.Email,
		Phone:     cand.Phone,
	}
	if err := tx.Gateway.GenerateReservation(ctx, slot.LineID, dateTime, person); err != nil {
		// best effort: the block expires on its own if the release fails
		if relErr := tx.Gateway.ReleaseBlock(ctx, slot.LineID, dateTime, blockRut); relErr != nil {
			log.Error().Err(relErr).Str("slot", slot.String()).Msg("releasing block failed")
		}
		return &AttemptError{Stage: StageReserve, Err: err}
	}

	log.Info().Str("slot", slot.String()).Str("user", cand.Display()).Msg("reservation confirmed")
	return nil
}
