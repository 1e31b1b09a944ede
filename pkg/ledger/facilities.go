// Package ledger derives every aggregate view from a dataset snapshot:
// facility index and search, per-facility merge, monthly roll-up, grand
// totals, rankings and the by-source breakdown. All functions are pure reads
// of an immutable snapshot.
package ledger

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type facilityKeyed interface {
	FacilityID() string
}

func collectIDs[T facilityKeyed](set map[string]struct{}, recs []T) {
	for _, r := range recs {
		if id := r.FacilityID(); id != "" {
			set[id] = struct{}{}
		}
	}
}

// FacilityNames returns every distinct facility identifier referenced by any
// of the ten collections, sorted.
func FacilityNames(s *dataset.Snapshot) []string {
	set := make(map[string]struct{})
	collectIDs(set, s.Facilities)
	collectIDs(set, s.FlareStacks)
	collectIDs(set, s.AtmosphericTanks)
	collectIDs(set, s.Blowdowns)
	collectIDs(set, s.Transport)
	collectIDs(set, s.BySource)
	collectIDs(set, s.Injection)
	collectIDs(set, s.Storage)
	collectIDs(set, s.Utilization)
	collectIDs(set, s.EquipLeaks)

	names := make([]string, 0, len(set))
	for id := range set {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// Search returns the facility names containing query, ignoring case and
// accents. A blank query returns the full index.
func Search(s *dataset.Snapshot, query string) []string {
	names := FacilityNames(s)
	q := strings.TrimSpace(query)
	if q == "" {
		return names
	}
	q = fold(q)

	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.Contains(fold(n), q) {
			out = append(out, n)
		}
	}
	return out
}

// fold lowercases and strips combining marks (Élodie -> elodie).
// transform.Chain is stateful, so each call builds its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
