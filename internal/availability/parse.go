// Package availability turns the gateway's heterogeneous day/time payloads
// into canonical sorted, de-duplicated lists. The response schemas vary
// between tenants and API versions, so parsing is a defensive scan over known
// wrapper and field names rather than a fixed schema.
package availability

import (
	"encoding/json"
	"regexp"
	"sort"
)

var (
	dateRE  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRE  = regexp.MustCompile(`\b(\d{2}:\d{2})(?::\d{2})?\b`)
	tokenRE = regexp.MustCompile(`[,\s]+`)
)

var dayWrapperKeys = []string{"days", "availableDays", "dates", "data", "items"}
var dayFieldKeys = []string{"date", "day", "dayDate", "fecha"}

// ParseDays extracts YYYY-MM-DD values from a days payload: a bare list of
// strings or objects, one of the known wrapper keys, or (rarely) a delimited
// string. Returns sorted unique dates.
func ParseDays(payload []byte) []string {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil
	}
	seen := map[string]bool{}

	if obj, ok := v.(map[string]any); ok {
		for _, k := range dayWrapperKeys {
			if inner, ok := obj[k]; ok {
				v = inner
				break
			}
		}
	}

	switch t := v.(type) {
	case []any:
		for _, it := range t {
			if d := dayString(it); d != "" {
				seen[d] = true
			}
		}
	case string:
		for _, tok := range tokenRE.Split(t, -1) {
			if dateRE.MatchString(tok) {
				seen[tok] = true
			}
		}
	}
	return sortedKeys(seen)
}

func dayString(x any) string {
	switch t := x.(type) {
	case string:
		if dateRE.MatchString(t) {
			return t
		}
	case map[string]any:
		for _, k := range dayFieldKeys {
			if s, ok := t[k].(string); ok && dateRE.MatchString(s) {
				return s
			}
		}
	}
	return ""
}

var timeWrapperKeys = []string{
	"times", "hours", "availableTimes", "availableHours", "slots", "items", "data",
	// shapes seen in the wild
	"reservations", "reservationsById",
}

var timeFieldKeys = []string{
	"hour", "time", "startTime", "start", "hora", "from",
	// sometimes an ISO datetime rather than a bare clock value
	"reservationDate", "reservation_date",
}

// ParseTimes extracts HH:MM values from a times payload, recursing through
// known wrapper keys and reading known time-like fields. Seconds are dropped.
// Returns sorted unique times.
func ParseTimes(payload []byte) []string {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil
	}
	seen := map[string]bool{}
	scanTimes(v, seen)
	return sortedKeys(seen)
}

func scanTimes(v any, seen map[string]bool) {
	switch t := v.(type) {
	case []any:
		for _, it := range t {
			scanTimes(it, seen)
		}
	case map[string]any:
		for _, k := range timeWrapperKeys {
			if inner, ok := t[k]; ok {
				scanTimes(inner, seen)
			}
		}
		for _, k := range timeFieldKeys {
			if inner, ok := t[k]; ok {
				addTimeLike(inner, seen)
			}
		}
	default:
		addTimeLike(v, seen)
	}
}

func addTimeLike(v any, seen map[string]bool) {
	s, ok := v.(string)
	if !ok {
		return
	}
	if m := timeRE.FindStringSubmatch(s); m != nil {
		seen[m[1]] = true
	}
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
