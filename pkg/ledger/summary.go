package ledger

import (
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
)

// Summary holds grand totals across the whole snapshot.
type Summary struct {
	TotalFlare       float64   `json:"total_flare"`
	TotalTank        float64   `json:"total_tank"`
	TotalBlowdown    float64   `json:"total_blowdown"`
	TotalTransported float64   `json:"total_transported"`
	TotalInjected    float64   `json:"total_injected"`
	TotalStored      float64   `json:"total_stored"`
	TotalUtilized    float64   `json:"total_utilized"`
	TotalLeaks       float64   `json:"total_leaks"`
	TotalEmissions   float64   `json:"total_emissions"`
	TotalCaptured    float64   `json:"total_captured"`
	TotalFacilities  int       `json:"total_facilities"`
	TotalRecords     int       `json:"total_records"`
	LoadedAt         time.Time `json:"loaded_at"`
}

func sum[T any](recs []T, measure func(T) float64) float64 {
	var total float64
	for _, r := range recs {
		total += measure(r)
	}
	return total
}

// Summarize sums each category over its whole collection. TotalEmissions is
// flare + tank + blowdown + leaks; TotalCaptured is injected + stored.
func Summarize(s *dataset.Snapshot) Summary {
	sm := Summary{
		TotalFlare:       sum(s.FlareStacks, func(r dataset.FlareStackRecord) float64 { return r.Emissions }),
		TotalTank:        sum(s.AtmosphericTanks, func(r dataset.AtmosphericTankRecord) float64 { return r.Emissions }),
		TotalBlowdown:    sum(s.Blowdowns, func(r dataset.BlowdownRecord) float64 { return r.Released }),
		TotalTransported: sum(s.Transport, func(r dataset.TransportRecord) float64 { return r.Transported }),
		TotalInjected:    sum(s.Injection, func(r dataset.InjectionRecord) float64 { return r.Injected }),
		TotalStored:      sum(s.Storage, func(r dataset.StorageRecord) float64 { return r.Stored }),
		TotalUtilized:    sum(s.Utilization, func(r dataset.UtilizationRecord) float64 { return r.Utilized }),
		TotalLeaks:       sum(s.EquipLeaks, func(r dataset.EquipLeakRecord) float64 { return r.AnnualLeak }),
		TotalFacilities:  len(FacilityNames(s)),
		TotalRecords:     s.TotalRecords,
		LoadedAt:         s.LoadedAt,
	}
	sm.TotalEmissions = sm.TotalFlare + sm.TotalTank + sm.TotalBlowdown + sm.TotalLeaks
	sm.TotalCaptured = sm.TotalInjected + sm.TotalStored
	return sm
}
