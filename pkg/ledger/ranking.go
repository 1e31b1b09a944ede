package ledger

import (
	"sort"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
)

// DefaultRankLimit is the ranking length used when a caller names no limit.
const DefaultRankLimit = 10

// RankEntry is one facility's place in the emissions ranking.
type RankEntry struct {
	Rank              int                    `json:"rank"`
	Facility          string                 `json:"facility"`
	CombinedEmissions float64                `json:"combined_emissions"`
	Registry          dataset.FacilityRecord `json:"registry"`
	Registered        bool                   `json:"registered"`
	Counts            Counts                 `json:"counts"`
}

// Rank orders every facility by combined emissions, highest first, ties by
// name, and keeps the first limit entries. A limit of zero or less yields an
// empty ranking.
func Rank(s *dataset.Snapshot, limit int) []RankEntry {
	if limit <= 0 {
		return []RankEntry{}
	}

	names := FacilityNames(s)
	entries := make([]RankEntry, 0, len(names))
	for _, name := range names {
		v := MergeFacility(s, name)
		entries = append(entries, RankEntry{
			Facility:          name,
			CombinedEmissions: v.CombinedEmissions(),
			Registry:          v.Registry,
			Registered:        v.Registered,
			Counts:            v.Counts,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CombinedEmissions != entries[j].CombinedEmissions {
			return entries[i].CombinedEmissions > entries[j].CombinedEmissions
		}
		return entries[i].Facility < entries[j].Facility
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
