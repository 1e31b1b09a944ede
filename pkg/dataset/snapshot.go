package dataset

import (
	"context"
	"sync"
	"time"
)

// Status says how a collection's load ended.
type Status string

const (
	StatusOK        Status = "ok"
	StatusNotFound  Status = "not_found"
	StatusFailed    Status = "failed"
	StatusMalformed Status = "malformed"
)

// Outcome is the typed result of loading one collection. A collection with
// zero records and StatusOK is genuinely empty; any other status means the
// records were dropped because the fetch or parse failed.
type Outcome struct {
	Dataset  Name          `json:"dataset"`
	Status   Status        `json:"status"`
	Records  int           `json:"records"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// OK reports whether the collection loaded cleanly.
func (o Outcome) OK() bool { return o.Status == StatusOK }

// Result is what a Loader hands back for one collection.
type Result struct {
	Outcome Outcome
	Records []Raw
}

// Loader fetches one named collection. Implementations must absorb every
// failure into the Outcome and return an empty record list.
type Loader interface {
	Load(ctx context.Context, name Name) Result
}

// Snapshot is one complete, immutable load of all ten collections.
// Nothing mutates a Snapshot after LoadSnapshot returns it.
type Snapshot struct {
	Facilities       []FacilityRecord        `json:"facilities"`
	FlareStacks      []FlareStackRecord      `json:"flare_stacks"`
	AtmosphericTanks []AtmosphericTankRecord `json:"atmospheric_tanks"`
	Blowdowns        []BlowdownRecord        `json:"blowdowns"`
	Transport        []TransportRecord       `json:"transport"`
	BySource         []BySourceRecord        `json:"by_source"`
	Injection        []InjectionRecord       `json:"injection"`
	Storage          []StorageRecord         `json:"storage"`
	Utilization      []UtilizationRecord     `json:"utilization"`
	EquipLeaks       []EquipLeakRecord       `json:"equip_leaks"`

	Outcomes     []Outcome `json:"outcomes"`
	TotalRecords int       `json:"total_records"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// LoadSnapshot fetches the ten collections concurrently and waits for all of
// them. A failed collection is empty in the snapshot and flagged in Outcomes;
// it never stops the others.
func LoadSnapshot(ctx context.Context, loader Loader) *Snapshot {
	all := All()
	results := make([]Result, len(all))

	var wg sync.WaitGroup
	for i, spec := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = loader.Load(ctx, spec.Name)
		}()
	}
	wg.Wait()

	raws := make(map[Name][]Raw, len(all))
	outcomes := make([]Outcome, len(all))
	for i, res := range results {
		res.Outcome.Dataset = all[i].Name
		res.Outcome.Records = len(res.Records)
		outcomes[i] = res.Outcome
		raws[all[i].Name] = res.Records
	}

	return NewSnapshot(raws, outcomes, time.Now())
}

// NewSnapshot builds a snapshot from already-fetched raw collections. Missing
// names become empty collections.
func NewSnapshot(raws map[Name][]Raw, outcomes []Outcome, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		Facilities:       convert(raws[Facilities], toFacility),
		FlareStacks:      convert(raws[FlareStacks], toFlare),
		AtmosphericTanks: convert(raws[AtmosphericTanks], toTank),
		Blowdowns:        convert(raws[Blowdowns], toBlowdown),
		Transport:        convert(raws[Transport], toTransport),
		BySource:         convert(raws[BySource], toBySource),
		Injection:        convert(raws[Injection], toInjection),
		Storage:          convert(raws[Storage], toStorage),
		Utilization:      convert(raws[Utilization], toUtilization),
		EquipLeaks:       convert(raws[EquipLeaks], toEquipLeak),
		Outcomes:         outcomes,
		LoadedAt:         loadedAt,
	}
	s.TotalRecords = len(s.Facilities) + len(s.FlareStacks) + len(s.AtmosphericTanks) +
		len(s.Blowdowns) + len(s.Transport) + len(s.BySource) + len(s.Injection) +
		len(s.Storage) + len(s.Utilization) + len(s.EquipLeaks)
	return s
}

// Outcome returns the load outcome recorded for name.
func (s *Snapshot) Outcome(name Name) (Outcome, bool) {
	for _, o := range s.Outcomes {
		if o.Dataset == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// Failed lists the collections that did not load cleanly.
func (s *Snapshot) Failed() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
