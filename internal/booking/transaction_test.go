package booking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afalarconm/barnechea-driver/internal/directory"
	"github.com/afalarconm/barnechea-driver/internal/saltala"
)

type gatewayCall struct {
	op       string
	lineID   int
	dateTime string
	rut      string
	person   saltala.Person
}

type fakeSchedGateway struct {
	blockErr   error
	reserveErr error
	releaseErr error
	calls      []gatewayCall
}

func (g *fakeSchedGateway) BlockSlot(_ context.Context, lineID int, dateTime, rut string) error {
	g.calls = append(g.calls, gatewayCall{op: "block", lineID: lineID, dateTime: dateTime, rut: rut})
	return g.blockErr
}

func (g *fakeSchedGateway) GenerateReservation(_ context.Context, lineID int, dateTime string, p saltala.Person) error {
	g.calls = append(g.calls, gatewayCall{op: "reserve", lineID: lineID, dateTime: dateTime, person: p})
	return g.reserveErr
}

func (g *fakeSchedGateway) ReleaseBlock(_ context.Context, lineID int, dateTime, rut string) error {
	g.calls = append(g.calls, gatewayCall{op: "release", lineID: lineID, dateTime: dateTime, rut: rut})
	return g.releaseErr
}

func (g *fakeSchedGateway) ops() []string {
	var out []string
	for _, c := range g.calls {
		out = append(out, c.op)
	}
	return out
}

var ana = directory.Candidate{
	ID:        "u1",
	Rut:       "12.345.678-9",
	FirstName: "Ana",
	LastName:  "Rojas",
	Email:     "ana@example.com",
	Phone:     "+56911112222",
}

func TestBookSuccess(t *testing.T) {
	gw := &fakeSchedGateway{}
	tx := &Transaction{Gateway: gw}
	slot := Slot{LineID: 1768, Date: "2025-03-08", Time: "09:30"}

	require.NoError(t, tx.Book(context.Background(), slot, ana))
	assert.Equal(t, []string{"block", "reserve"}, gw.ops())

	block := gw.calls[0]
	assert.Equal(t, 1768, block.lineID)
	assert.Equal(t, "2025-03-08T09:30:00", block.dateTime)
	// the block tag is the digits-only rut
	assert.Equal(t, "123456789", block.rut)

	reserve := gw.calls[1]
	// the reservation form carries the rut exactly as registered
	assert.Equal(t, "12.345.678-9", reserve.person.Rut)
	assert.Equal(t, "Ana", reserve.person.FirstName)
	assert.Equal(t, "Rojas", reserve.person.LastName)
	assert.Equal(t, "ana@example.com", reserve.person.Email)
	assert.Equal(t, "+56911112222", reserve.person.Phone)
}

func TestBookIneligibleTouchesNothing(t *testing.T) {
	gw := &fakeSchedGateway{}
	tx := &Transaction{Gateway: gw}

	err := tx.Book(context.Background(), Slot{LineID: 1, Date: "2025-03-08", Time: "09:30"},
		directory.Candidate{FirstName: "Ana"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIneligible))
	var attempt *AttemptError
	require.ErrorAs(t, err, &attempt)
	assert.Equal(t, StageEligibility, attempt.Stage)
	assert.Empty(t, gw.calls)
}

func TestBookBlockFailureStopsThere(t *testing.T) {
	gw := &fakeSchedGateway{blockErr: errors.New("slot taken")}
	tx := &Transaction{Gateway: gw}

	err := tx.Book(context.Background(), Slot{LineID: 1, Date: "2025-03-08", Time: "09:30"}, ana)

	var attempt *AttemptError
	require.ErrorAs(t, err, &attempt)
	assert.Equal(t, StageBlock, attempt.Stage)
	assert.Equal(t, []string{"block"}, gw.ops())
}

func TestBookReserveFailureReleasesBlock(t *testing.T) {
	gw := &fakeSchedGateway{reserveErr: errors.New("form rejected")}
	tx := &Transaction{Gateway: gw}

	err := tx.Book(context.Background(), Slot{LineID: 1, Date: "2025-03-08", Time: "09:30"}, ana)

	var attempt *AttemptError
	require.ErrorAs(t, err, &attempt)
	assert.Equal(t, StageReserve, attempt.Stage)
	assert.Equal(t, []string{"block", "reserve", "release"}, gw.ops())
	assert.Equal(t, "123456789", gw.calls[2].rut)
}

func TestBookReleaseFailureKeepsReserveError(t *testing.T) {
	gw := &fakeSchedGateway{
		reserveErr: errors.New("form rejected"),
		releaseErr: errors.New("release also down"),
	}
	tx := &Transaction{Gateway: gw}

	err := tx.Book(context.Background(), Slot{LineID: 1, Date: "2025-03-08", Time: "09:30"}, ana)

	var attempt *AttemptError
	require.ErrorAs(t, err, &attempt)
	assert.Equal(t, StageReserve, attempt.Stage)
	assert.Contains(t, attempt.Err.Error(), "form rejected")
}

func TestSlotDateTime(t *testing.T) {
	s := Slot{LineID: 1768, Date: "2025-03-08", Time: "09:30"}
	assert.Equal(t, "2025-03-08T09:30:00", s.DateTime())
	assert.Equal(t, "line 1768 2025-03-08 09:30", s.String())
}
