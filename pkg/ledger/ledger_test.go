package ledger

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
)

func snapshot(t *testing.T, raws map[dataset.Name][]dataset.Raw) *dataset.Snapshot {
	t.Helper()
	return dataset.NewSnapshot(raws, nil, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// portAllen mixes canonical and fallback spellings for the same facility.
func portAllen(t *testing.T) *dataset.Snapshot {
	return snapshot(t, map[dataset.Name][]dataset.Raw{
		dataset.FlareStacks: {
			{"Facility Name": "Port Allen", "Month": "2025-07", "CO2 Emissions (t)": 100.0},
		},
		dataset.AtmosphericTanks: {
			{"facility_name": "Port Allen", "month": "2025-07", "annual_co2": 50.0},
		},
	})
}

// fixture is a small multi-facility snapshot.
func fixture(t *testing.T) *dataset.Snapshot {
	return snapshot(t, map[dataset.Name][]dataset.Raw{
		dataset.Facilities: {
			{"Facility Name": "Alpha", "Operator": "Acme", "State": "LA"},
			{"Facility Name": "Bravo"},
		},
		dataset.FlareStacks: {
			{"Facility Name": "Alpha", "Month": "2025-01", "CO2 Emissions (t)": 100.0},
			{"Facility Name": "Alpha", "Month": "2025-02", "CO2 Emissions (t)": 20.0},
		},
		dataset.AtmosphericTanks: {
			{"Facility Name": "Bravo", "Month": "2025-01", "Annual CO2 (t)": 200.0},
		},
		dataset.Blowdowns: {
			{"facility_name": "Charlie", "month": "2025-02", "co2_released": 60.0},
		},
		dataset.Transport: {
			{"Facility Name": "Alpha", "Month": "2025-01", "CO2 Transported (t)": 30.0},
		},
		dataset.Injection: {
			{"Facility Name": "Bravo", "Month": "2025-02", "CO2 Injected (t)": 40.0},
		},
		dataset.Storage: {
			{"Facility Name": "Bravo", "Month": "2025-02", "CO2 Stored (t)": 15.0},
		},
		dataset.Utilization: {
			{"Facility Name": "Delta", "Month": "2025-01", "CO2 Utilized (t)": 5.0},
		},
		dataset.EquipLeaks: {
			{"Facility Name": "Charlie", "Annual CO2 Leaked (t)": 120.0},
		},
		dataset.BySource: {
			{"Facility Name": "Alpha", "Month": "2025-01", "Flare Stacks (t)": 1.0, "Atmospheric Tanks (t)": 1.0, "Blowdowns (t)": 1.0},
		},
	})
}

func TestMonthlyAggregate_MixedKeysMergeIntoOneRow(t *testing.T) {
	rows := MonthlyAggregate(portAllen(t))
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1: %+v", len(rows), rows)
	}
	r := rows[0]
	if r.Month != "2025-07" || r.FlareEmissions != 100 || r.TankEmissions != 50 || r.TotalEmissions != 150 {
		t.Errorf("row = %+v", r)
	}
	if r.FacilityCount != 1 || !reflect.DeepEqual(r.Facilities, []string{"Port Allen"}) {
		t.Errorf("facilities = %v (count %d)", r.Facilities, r.FacilityCount)
	}
}

func TestMonthlyAggregate_SortedAndConserved(t *testing.T) {
	s := fixture(t)
	rows := MonthlyAggregate(s, WithLeakAllocator(Unattributed))

	var months []string
	var flare, tank, blow, transport, injected, stored, utilized, leaks, total float64
	for _, r := range rows {
		months = append(months, r.Month)
		flare += r.FlareEmissions
		tank += r.TankEmissions
		blow += r.BlowdownEmissions
		transport += r.Transported
		injected += r.Injected
		stored += r.Stored
		utilized += r.Utilized
		leaks += r.Leaks
		total += r.TotalEmissions
	}
	if want := []string{"2025-01", "2025-02", UnattributedMonth}; !reflect.DeepEqual(months, want) {
		t.Errorf("months = %v, want %v", months, want)
	}

	sm := Summarize(s)
	checks := []struct {
		name      string
		got, want float64
	}{
		{"flare", flare, sm.TotalFlare},
		{"tank", tank, sm.TotalTank},
		{"blowdown", blow, sm.TotalBlowdown},
		{"transported", transport, sm.TotalTransported},
		{"injected", injected, sm.TotalInjected},
		{"stored", stored, sm.TotalStored},
		{"utilized", utilized, sm.TotalUtilized},
		{"leaks", leaks, sm.TotalLeaks},
		{"total", total, sm.TotalEmissions},
	}
	for _, c := range checks {
		if !approx(c.got, c.want) {
			t.Errorf("%s: monthly sum %v, summary %v", c.name, c.got, c.want)
		}
	}
}

func TestMonthlyAggregate_FacilitySets(t *testing.T) {
	rows := MonthlyAggregate(fixture(t))
	jan := rows[0]
	if want := []string{"Alpha", "Bravo", "Delta"}; !reflect.DeepEqual(jan.Facilities, want) {
		t.Errorf("2025-01 facilities = %v, want %v", jan.Facilities, want)
	}
	feb := rows[1]
	if want := []string{"Alpha", "Bravo", "Charlie"}; !reflect.DeepEqual(feb.Facilities, want) {
		t.Errorf("2025-02 facilities = %v, want %v", feb.Facilities, want)
	}
}

func TestMonthlyAggregate_MissingMonth(t *testing.T) {
	s := snapshot(t, map[dataset.Name][]dataset.Raw{
		dataset.Blowdowns: {{"Facility Name": "A", "CO2 Released (t)": 7.0}},
	})
	rows := MonthlyAggregate(s)
	if len(rows) != 1 || rows[0].Month != UnknownMonth || rows[0].BlowdownEmissions != 7 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestMonthlyAggregate_Empty(t *testing.T) {
	rows := MonthlyAggregate(snapshot(t, nil))
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %#v, want empty slice", rows)
	}
}

func TestLeakAllocators(t *testing.T) {
	s := fixture(t)

	spread := MonthlyAggregate(s)
	if len(spread) != 2 {
		t.Fatalf("spread rows = %d, want 2", len(spread))
	}
	for _, r := range spread {
		if !approx(r.Leaks, 10) {
			t.Errorf("%s leaks = %v, want 10", r.Month, r.Leaks)
		}
	}

	un := MonthlyAggregate(s, WithLeakAllocator(Unattributed))
	last := un[len(un)-1]
	if last.Month != UnattributedMonth || last.Leaks != 120 || last.TotalEmissions != 120 || last.FacilityCount != 0 {
		t.Errorf("unattributed row = %+v", last)
	}

	onlyLeaks := snapshot(t, map[dataset.Name][]dataset.Raw{
		dataset.EquipLeaks: {{"Facility Name": "A", "Annual CO2 Leaked (t)": 12.0}},
	})
	if rows := MonthlyAggregate(onlyLeaks); len(rows) != 0 {
		t.Errorf("spread with no months should add nothing, got %+v", rows)
	}
}

func TestLeakAllocatorByName(t *testing.T) {
	for _, name := range []string{"", "spread_evenly", "unattributed"} {
		if a, err := LeakAllocatorByName(name); err != nil || a == nil {
			t.Errorf("LeakAllocatorByName(%q) = %v", name, err)
		}
	}
	if _, err := LeakAllocatorByName("monthly"); err == nil {
		t.Error("unknown policy should fail")
	}
}

func TestSummarize(t *testing.T) {
	sm := Summarize(fixture(t))
	if sm.TotalFlare != 120 || sm.TotalTank != 200 || sm.TotalBlowdown != 60 || sm.TotalLeaks != 120 {
		t.Errorf("emission totals = %+v", sm)
	}
	if sm.TotalEmissions != 500 {
		t.Errorf("TotalEmissions = %v, want 500", sm.TotalEmissions)
	}
	if sm.TotalCaptured != 55 {
		t.Errorf("TotalCaptured = %v, want 55", sm.TotalCaptured)
	}
	if sm.TotalFacilities != 4 {
		t.Errorf("TotalFacilities = %d, want 4", sm.TotalFacilities)
	}
	if sm.TotalRecords != 12 {
		t.Errorf("TotalRecords = %d, want 12", sm.TotalRecords)
	}
}

func TestFacilityNamesAndSearch(t *testing.T) {
	s := fixture(t)
	all := FacilityNames(s)
	if want := []string{"Alpha", "Bravo", "Charlie", "Delta"}; !reflect.DeepEqual(all, want) {
		t.Fatalf("FacilityNames = %v, want %v", all, want)
	}
	if got := Search(s, "   "); !reflect.DeepEqual(got, all) {
		t.Errorf("blank search = %v", got)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"PORT", []string{"Port Allen"}},
		{"allen", []string{"Port Allen"}},
		{"ecole", []string{"École Nord"}},
		{"zzz", []string{}},
	}
	named := snapshot(t, map[dataset.Name][]dataset.Raw{
		dataset.Facilities: {{"Facility Name": "Port Allen"}, {"Facility Name": "École Nord"}},
	})
	for _, tt := range tests {
		if got := Search(named, tt.query); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestMergeFacility(t *testing.T) {
	s := fixture(t)
	v := MergeFacility(s, "Alpha")
	if !v.Registered || v.Registry.Operator != "Acme" {
		t.Errorf("registry = %+v registered=%v", v.Registry, v.Registered)
	}
	want := Counts{FlareStacks: 2, Transport: 1, BySource: 1}
	if v.Counts != want {
		t.Errorf("counts = %+v, want %+v", v.Counts, want)
	}
	if got := v.CombinedEmissions(); got != 120 {
		t.Errorf("CombinedEmissions = %v, want 120", got)
	}
	if again := MergeFacility(s, "Alpha"); !reflect.DeepEqual(v, again) {
		t.Error("MergeFacility is not repeatable")
	}
}

func TestMergeFacility_Unknown(t *testing.T) {
	v := MergeFacility(fixture(t), "Nowhere")
	if v.Registered || v.Counts != (Counts{}) {
		t.Errorf("unknown facility = %+v", v)
	}
	if v.FlareStacks == nil || len(v.FlareStacks) != 0 {
		t.Error("collections should be empty, not nil")
	}
}

func TestRank(t *testing.T) {
	s := fixture(t)
	got := Rank(s, DefaultRankLimit)
	order := make([]string, len(got))
	for i, e := range got {
		order[i] = e.Facility
		if e.Rank != i+1 {
			t.Errorf("%s rank = %d, want %d", e.Facility, e.Rank, i+1)
		}
	}
	// Charlie: 60 blowdown + 120 leaks; Bravo: 200 tank; Alpha: 120 flare.
	if want := []string{"Bravo", "Charlie", "Alpha", "Delta"}; !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}

	top := Rank(s, 2)
	if len(top) != 2 || top[0].CombinedEmissions < top[1].CombinedEmissions {
		t.Errorf("top 2 = %+v", top)
	}
}

func TestRank_ZeroLimitIsEmpty(t *testing.T) {
	s := fixture(t)
	for _, limit := range []int{0, -1} {
		got := Rank(s, limit)
		if got == nil || len(got) != 0 {
			t.Errorf("Rank(%d) = %+v, want empty", limit, got)
		}
	}
}

func TestRank_TiesByName(t *testing.T) {
	s := snapshot(t, map[dataset.Name][]dataset.Raw{
		dataset.FlareStacks: {
			{"Facility Name": "Zulu", "Month": "2025-01", "CO2 Emissions (t)": 5.0},
			{"Facility Name": "Echo", "Month": "2025-01", "CO2 Emissions (t)": 5.0},
		},
	})
	got := Rank(s, 10)
	if len(got) != 2 || got[0].Facility != "Echo" || got[1].Facility != "Zulu" {
		t.Errorf("ties = %+v", got)
	}
}

func TestSourceBreakdown(t *testing.T) {
	b := SourceBreakdown(fixture(t))
	if b.Total != 3 {
		t.Fatalf("Total = %v, want 3", b.Total)
	}
	p := b.Percentages
	if p.FlareStacks != 33.33 || p.AtmosphericTanks != 33.33 || p.Blowdowns != 33.33 || p.EquipmentLeaks != 0 {
		t.Errorf("percentages = %+v", p)
	}
	if sum := p.FlareStacks + p.AtmosphericTanks + p.Blowdowns + p.EquipmentLeaks; math.Abs(sum-100) > 0.05 {
		t.Errorf("percentages sum to %v", sum)
	}
}

func TestSourceBreakdown_Empty(t *testing.T) {
	b := SourceBreakdown(snapshot(t, nil))
	if b.Total != 0 || b.Percentages != (SourceShares{}) {
		t.Errorf("empty breakdown = %+v", b)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total, want float64
	}{
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{5, 5, 100},
		{0, 5, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := Percent(tt.part, tt.total); got != tt.want {
			t.Errorf("Percent(%v, %v) = %v, want %v", tt.part, tt.total, got, tt.want)
		}
	}
}
