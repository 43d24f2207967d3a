// Package discovery resolves the configured line names to line ids. The
// booking API has no lookup-by-name endpoint, so discovery walks the public
// services tree (services, units, lines) and matches names with an
// accent-insensitive slug comparison.
package discovery

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/afalarconm/barnechea-driver/internal/saltala"
)

// Gateway is the slice of the booking API discovery needs.
type Gateway interface {
	Services(ctx context.Context, corporationID int) (json.RawMessage, error)
	Lines(ctx context.Context, unitID int) ([]saltala.Line, error)
}

// Slug lowercases a name and strips diacritics so "Renovación" and
// "renovacion" compare equal. Inner whitespace collapses to single spaces.
func Slug(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var unitIDKeys = []string{"unitId", "scheduleUnitId", "schedule_unit_id"}
var unitListKeys = []string{"units", "scheduleUnits", "schedules", "items", "children"}

// ExtractUnitIDs rakes unit ids out of a services payload. Schemas vary, so
// it checks the known id fields and recurses through the known collection
// fields. Returns sorted unique ids.
func ExtractUnitIDs(payload json.RawMessage) []int {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil
	}
	seen := map[int]bool{}
	var scan func(any)
	scan = func(x any) {
		switch t := x.(type) {
		case []any:
			for _, it := range t {
				scan(it)
			}
		case map[string]any:
			for _, k := range unitIDKeys {
				if f, ok := t[k].(float64); ok && f == float64(int(f)) {
					seen[int(f)] = true
				}
			}
			for _, k := range unitListKeys {
				if inner, ok := t[k].([]any); ok {
					for _, it := range inner {
						scan(it)
					}
				}
			}
		}
	}
	scan(v)
	if len(seen) == 0 {
		return nil
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Finder maps target line names to line ids.
type Finder struct {
	Gateway       Gateway
	TargetNames   []string
	UnitHint      int
	CorporationID int

	// FallbackLineID is used when nothing can be discovered, so a transient
	// discovery failure never blanks the poll.
	FallbackLineID int

	MockLineID   int
	MockLineName string
}

// Targets resolves the configured line names to ids. The unit hint is tried
// first; when it does not cover every target the full services tree is
// walked. The result is never empty: with nothing discovered it falls back
// to FallbackLineID.
func (f *Finder) Targets(ctx context.Context) map[string]int {
	if f.MockLineID != 0 {
		name := f.MockLineName
		if name == "" {
			name = f.firstTarget()
		}
		return map[string]int{name: f.MockLineID}
	}

	slugs := map[string]bool{}
	for _, n := range f.TargetNames {
		slugs[Slug(n)] = true
	}

	found := map[string]int{}
	if f.UnitHint != 0 {
		f.collect(ctx, f.UnitHint, slugs, found)
		if len(found) >= len(slugs) && len(found) > 0 {
			return found
		}
	}

	raw, err := f.Gateway.Services(ctx, f.CorporationID)
	if err != nil {
		log.Error().Err(err).Msg("service tree walk failed")
	} else {
		ids := ExtractUnitIDs(raw)
		for _, uid := range ids {
			if uid == f.UnitHint {
				continue
			}
			f.collect(ctx, uid, slugs, found)
		}
	}

	if len(found) == 0 {
		log.Warn().Int("line_id", f.FallbackLineID).Msg("discovery found nothing, using fallback line")
		return map[string]int{f.firstTarget(): f.FallbackLineID}
	}
	return found
}

func (f *Finder) collect(ctx context.Context, unitID int, slugs map[string]bool, found map[string]int) {
	lines, err := f.Gateway.Lines(ctx, unitID)
	if err != nil {
		log.Debug().Err(err).Int("unit_id", unitID).Msg("listing lines failed")
		return
	}
	for _, ln := range lines {
		if !slugs[Slug(ln.Name)] {
			continue
		}
		if _, ok := found[ln.Name]; !ok {
			found[ln.Name] = ln.ID
		}
	}
}

func (f *Finder) firstTarget() string {
	if len(f.TargetNames) > 0 {
		return f.TargetNames[0]
	}
	return "Renovación"
}
