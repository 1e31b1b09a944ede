package ledger

import "github.com/hazyhaar/co2-ledger/pkg/dataset"

// Counts is the number of records per collection for one facility.
type Counts struct {
	FlareStacks      int `json:"flare_stacks"`
	AtmosphericTanks int `json:"atmospheric_tanks"`
	Blowdowns        int `json:"blowdowns"`
	Transport        int `json:"transport"`
	BySource         int `json:"by_source"`
	Injection        int `json:"injection"`
	Storage          int `json:"storage"`
	Utilization      int `json:"utilization"`
	EquipLeaks       int `json:"equip_leaks"`
}

// MergeView is everything the snapshot knows about one facility.
// Registered is false when the facility registry has no entry for it.
type MergeView struct {
	Facility         string                          `json:"facility"`
	Registry         dataset.FacilityRecord          `json:"registry"`
	Registered       bool                            `json:"registered"`
	FlareStacks      []dataset.FlareStackRecord      `json:"flare_stacks"`
	AtmosphericTanks []dataset.AtmosphericTankRecord `json:"atmospheric_tanks"`
	Blowdowns        []dataset.BlowdownRecord        `json:"blowdowns"`
	Transport        []dataset.TransportRecord       `json:"transport"`
	BySource         []dataset.BySourceRecord        `json:"by_source"`
	Injection        []dataset.InjectionRecord       `json:"injection"`
	Storage          []dataset.StorageRecord         `json:"storage"`
	Utilization      []dataset.UtilizationRecord     `json:"utilization"`
	EquipLeaks       []dataset.EquipLeakRecord       `json:"equip_leaks"`
	Counts           Counts                          `json:"counts"`
}

func filterFacility[T facilityKeyed](recs []T, name string) []T {
	out := make([]T, 0)
	for _, r := range recs {
		if r.FacilityID() == name {
			out = append(out, r)
		}
	}
	return out
}

// MergeFacility gathers every record belonging to name. An unknown name is
// not an error: it yields empty collections and Registered=false.
func MergeFacility(s *dataset.Snapshot, name string) MergeView {
	v := MergeView{
		Facility:         name,
		FlareStacks:      filterFacility(s.FlareStacks, name),
		AtmosphericTanks: filterFacility(s.AtmosphericTanks, name),
		Blowdowns:        filterFacility(s.Blowdowns, name),
		Transport:        filterFacility(s.Transport, name),
		BySource:         filterFacility(s.BySource, name),
		Injection:        filterFacility(s.Injection, name),
		Storage:          filterFacility(s.Storage, name),
		Utilization:      filterFacility(s.Utilization, name),
		EquipLeaks:       filterFacility(s.EquipLeaks, name),
	}
	for _, f := range s.Facilities {
		if f.FacilityID() == name {
			v.Registry = f
			v.Registered = true
			break
		}
	}
	v.Counts = v.count()
	return v
}

func (v MergeView) count() Counts {
	return Counts{
		FlareStacks:      len(v.FlareStacks),
		AtmosphericTanks: len(v.AtmosphericTanks),
		Blowdowns:        len(v.Blowdowns),
		Transport:        len(v.Transport),
		BySource:         len(v.BySource),
		Injection:        len(v.Injection),
		Storage:          len(v.Storage),
		Utilization:      len(v.Utilization),
		EquipLeaks:       len(v.EquipLeaks),
	}
}

// CombinedEmissions is flare + tank + blowdown + equipment leak CO2 for the
// facility. Transport, injection, storage and utilization are not emissions.
func (v MergeView) CombinedEmissions() float64 {
	var total float64
	for _, r := range v.FlareStacks {
		total += r.Emissions
	}
	for _, r := range v.AtmosphericTanks {
		total += r.Emissions
	}
	for _, r := range v.Blowdowns {
		total += r.Released
	}
	for _, r := range v.EquipLeaks {
		total += r.AnnualLeak
	}
	return total
}
