package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDays(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    []string
	}{
		{
			name:    "bare string list",
			payload: `["2025-03-10","2025-03-08","2025-03-10"]`,
			want:    []string{"2025-03-08", "2025-03-10"},
		},
		{
			name:    "object list with date field",
			payload: `[{"date":"2025-03-08"},{"fecha":"2025-03-09"},{"other":"x"}]`,
			want:    []string{"2025-03-08", "2025-03-09"},
		},
		{
			name:    "wrapped in days",
			payload: `{"days":["2025-04-01"]}`,
			want:    []string{"2025-04-01"},
		},
		{
			name:    "wrapped in availableDays objects",
			payload: `{"availableDays":[{"dayDate":"2025-04-02"}]}`,
			want:    []string{"2025-04-02"},
		},
		{
			name:    "delimited string",
			payload: `"2025-05-01, 2025-05-03 2025-05-02"`,
			want:    []string{"2025-05-01", "2025-05-02", "2025-05-03"},
		},
		{
			name:    "garbage values dropped",
			payload: `["not-a-date","2025-06-01",42]`,
			want:    []string{"2025-06-01"},
		},
		{
			name:    "invalid json",
			payload: `{nope`,
			want:    nil,
		},
		{
			name:    "empty list",
			payload: `[]`,
			want:    nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseDays([]byte(tc.payload)))
		})
	}
}

func TestParseTimes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    []string
	}{
		{
			name:    "bare string list with seconds",
			payload: `["10:30:00","09:00","10:30"]`,
			want:    []string{"09:00", "10:30"},
		},
		{
			name:    "object list with hour field",
			payload: `[{"hour":"11:00"},{"hora":"12:15"},{"note":"x"}]`,
			want:    []string{"11:00", "12:15"},
		},
		{
			name:    "nested reservations with datetimes",
			payload: `{"reservations":[{"reservationDate":"2025-03-08 09:30:00"},{"reservation_date":"2025-03-08 14:00:00"}]}`,
			want:    []string{"09:30", "14:00"},
		},
		{
			name:    "reservationsById wrapper",
			payload: `{"reservationsById":[{"startTime":"08:45"},{"from":"16:20:00"}]}`,
			want:    []string{"08:45", "16:20"},
		},
		{
			name:    "deeply wrapped slots",
			payload: `{"data":{"slots":[{"time":"13:05"}]}}`,
			want:    []string{"13:05"},
		},
		{
			name:    "no time-like values",
			payload: `[{"hour":"soon"},"later"]`,
			want:    nil,
		},
		{
			name:    "invalid json",
			payload: `[`,
			want:    nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTimes([]byte(tc.payload)))
		})
	}
}
