package ledger

import (
	"sort"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
)

// UnknownMonth collects records whose month field is missing, so the
// monthly roll-up still accounts for every tonne.
const UnknownMonth = "unknown"

// MonthRow is one calendar month of activity across all facilities.
type MonthRow struct {
	Month             string   `json:"month"`
	FlareEmissions    float64  `json:"flare_emissions"`
	TankEmissions     float64  `json:"tank_emissions"`
	BlowdownEmissions float64  `json:"blowdown_emissions"`
	Transported       float64  `json:"transported"`
	Injected          float64  `json:"injected"`
	Stored            float64  `json:"stored"`
	Utilized          float64  `json:"utilized"`
	Leaks             float64  `json:"leaks"`
	TotalEmissions    float64  `json:"total_emissions"`
	FacilityCount     int      `json:"facility_count"`
	Facilities        []string `json:"facilities"`
}

type category int

const (
	catFlare category = iota
	catTank
	catBlowdown
	catTransport
	catInjected
	catStored
	catUtilized
)

// monthBuilder accumulates rows keyed by month. It is owned by a single
// MonthlyAggregate call.
type monthBuilder struct {
	rows       map[string]*MonthRow
	facilities map[string]map[string]struct{}
}

func newMonthBuilder() *monthBuilder {
	return &monthBuilder{
		rows:       make(map[string]*MonthRow),
		facilities: make(map[string]map[string]struct{}),
	}
}

func (b *monthBuilder) row(month string) *MonthRow {
	if month == "" {
		month = UnknownMonth
	}
	r, ok := b.rows[month]
	if !ok {
		r = &MonthRow{Month: month}
		b.rows[month] = r
		b.facilities[month] = make(map[string]struct{})
	}
	return r
}

func (b *monthBuilder) add(month, facility string, cat category, v float64) {
	r := b.row(month)
	switch cat {
	case catFlare:
		r.FlareEmissions += v
		r.TotalEmissions += v
	case catTank:
		r.TankEmissions += v
		r.TotalEmissions += v
	case catBlowdown:
		r.BlowdownEmissions += v
		r.TotalEmissions += v
	case catTransport:
		r.Transported += v
	case catInjected:
		r.Injected += v
	case catStored:
		r.Stored += v
	case catUtilized:
		r.Utilized += v
	}
	if facility != "" {
		b.facilities[r.Month][facility] = struct{}{}
	}
}

// Months lists the months created so far, sorted.
func (b *monthBuilder) Months() []string {
	months := make([]string, 0, len(b.rows))
	for m := range b.rows {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// AddLeaks credits leak tonnes to month, creating the row if needed. Leak
// records carry no month, so they never add to a row's facility set.
func (b *monthBuilder) AddLeaks(month string, tonnes float64) {
	r := b.row(month)
	r.Leaks += tonnes
	r.TotalEmissions += tonnes
}

type monthKeyed interface {
	facilityKeyed
	MonthKey() string
}

func accumulate[T monthKeyed](b *monthBuilder, recs []T, cat category, measure func(T) float64) {
	for _, r := range recs {
		b.add(r.MonthKey(), r.FacilityID(), cat, measure(r))
	}
}

func (b *monthBuilder) build() []MonthRow {
	out := make([]MonthRow, 0, len(b.rows))
	for _, m := range b.Months() {
		r := *b.rows[m]
		set := b.facilities[m]
		r.Facilities = make([]string, 0, len(set))
		for f := range set {
			r.Facilities = append(r.Facilities, f)
		}
		sort.Strings(r.Facilities)
		r.FacilityCount = len(r.Facilities)
		out = append(out, r)
	}
	return out
}

type monthlyConfig struct {
	leaks LeakAllocator
}

// MonthlyOption configures MonthlyAggregate.
type MonthlyOption func(*monthlyConfig)

// WithLeakAllocator replaces the default SpreadEvenly leak policy.
func WithLeakAllocator(a LeakAllocator) MonthlyOption {
	return func(c *monthlyConfig) {
		if a != nil {
			c.leaks = a
		}
	}
}

// MonthlyAggregate rolls every month-bearing collection up by month, then
// hands equipment leaks to the configured allocator. Rows are sorted by
// month ("YYYY-MM" sorts chronologically).
func MonthlyAggregate(s *dataset.Snapshot, opts ...MonthlyOption) []MonthRow {
	cfg := monthlyConfig{leaks: SpreadEvenly}
	for _, o := range opts {
		o(&cfg)
	}

	b := newMonthBuilder()
	accumulate(b, s.FlareStacks, catFlare, func(r dataset.FlareStackRecord) float64 { return r.Emissions })
	accumulate(b, s.AtmosphericTanks, catTank, func(r dataset.AtmosphericTankRecord) float64 { return r.Emissions })
	accumulate(b, s.Blowdowns, catBlowdown, func(r dataset.BlowdownRecord) float64 { return r.Released })
	accumulate(b, s.Transport, catTransport, func(r dataset.TransportRecord) float64 { return r.Transported })
	accumulate(b, s.Injection, catInjected, func(r dataset.InjectionRecord) float64 { return r.Injected })
	accumulate(b, s.Storage, catStored, func(r dataset.StorageRecord) float64 { return r.Stored })
	accumulate(b, s.Utilization, catUtilized, func(r dataset.UtilizationRecord) float64 { return r.Utilized })

	cfg.leaks(b, s.EquipLeaks)
	return b.build()
}
