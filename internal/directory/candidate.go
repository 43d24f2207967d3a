// Package directory tracks the people waiting for an appointment. The
// authoritative copy lives in the remote Kapso user database; this package
// fetches, orders and updates it.
package directory

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

// User lifecycle states as stored in the remote directory.
const (
	StatusActive   = "active"
	StatusPending  = "pending"
	StatusInactive = "inactive"
)

// What a user asked the service to do when a slot opens.
const (
	ModeAutobook = "autobook"
	ModeNotify   = "notify"
)

// Candidate is one user in the waiting queue.
type Candidate struct {
	ID           string `json:"id"`
	Phone        string `json:"phone"`
	Rut          string `json:"rut"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	RegisteredAt string `json:"registered_at"`
	NotifiedAt   string `json:"notified_at"`
	Mode         string `json:"mode"`
	Status       string `json:"status"`
}

// Eligible reports whether the candidate carries the data a reservation form
// requires. Booking is never attempted for ineligible candidates so open
// slots are not burned on doomed requests.
func (c Candidate) Eligible() bool {
	return strings.TrimSpace(c.Rut) != "" &&
		strings.TrimSpace(c.FirstName) != "" &&
		strings.TrimSpace(c.LastName) != ""
}

// Display returns a short identifier for logs: phone, then id, then a
// placeholder.
func (c Candidate) Display() string {
	if c.Phone != "" {
		return c.Phone
	}
	if c.ID != "" {
		return c.ID
	}
	return "<unknown-user>"
}

var nonDigits = regexp.MustCompile(`\D`)

// NormalizeRut reduces a rut to its digits. The check digit is kept as-is
// rather than validated or stripped.
func NormalizeRut(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats the directory has been seen to
// return. The zero time and false mean unparseable or empty.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortFIFO orders candidates oldest registration first. Candidates with a
// missing or unparseable registration timestamp sort last; ties break on id
// so the order is stable across polls.
func SortFIFO(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		ti, oki := ParseTimestamp(cands[i].RegisteredAt)
		tj, okj := ParseTimestamp(cands[j].RegisteredAt)
		if oki != okj {
			return oki
		}
		if oki && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return cands[i].ID < cands[j].ID
	})
}

// SplitByMode partitions candidates into the auto-book queue and the
// notify-only cohort. An unset mode means notify.
func SplitByMode(cands []Candidate) (autobook, notify []Candidate) {
	for _, c := range cands {
		if c.Mode == ModeAutobook {
			autobook = append(autobook, c)
		} else {
			notify = append(notify, c)
		}
	}
	return autobook, notify
}
