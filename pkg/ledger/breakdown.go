package ledger

import (
	"github.com/cockroachdb/apd/v3"
	"github.com/hazyhaar/co2-ledger/pkg/dataset"
)

// SourceShares is each source category's percentage of the by-source total.
type SourceShares struct {
	FlareStacks      float64 `json:"flare_stacks"`
	AtmosphericTanks float64 `json:"atmospheric_tanks"`
	Blowdowns        float64 `json:"blowdowns"`
	EquipmentLeaks   float64 `json:"equipment_leaks"`
}

// Breakdown attributes emissions to source categories using only the
// by-source collection. Its EquipmentLeaks is that collection's own figure,
// not the EquipLeaks collection.
type Breakdown struct {
	FlareStacks      float64      `json:"flare_stacks"`
	AtmosphericTanks float64      `json:"atmospheric_tanks"`
	Blowdowns        float64      `json:"blowdowns"`
	EquipmentLeaks   float64      `json:"equipment_leaks"`
	Total            float64      `json:"total"`
	Percentages      SourceShares `json:"percentages"`
}

// SourceBreakdown sums the four by-source measures and their shares.
func SourceBreakdown(s *dataset.Snapshot) Breakdown {
	var b Breakdown
	for _, r := range s.BySource {
		b.FlareStacks += r.FlareStacks
		b.AtmosphericTanks += r.AtmosphericTanks
		b.Blowdowns += r.Blowdowns
		b.EquipmentLeaks += r.EquipmentLeaks
	}
	b.Total = b.FlareStacks + b.AtmosphericTanks + b.Blowdowns + b.EquipmentLeaks
	b.Percentages = SourceShares{
		FlareStacks:      Percent(b.FlareStacks, b.Total),
		AtmosphericTanks: Percent(b.AtmosphericTanks, b.Total),
		Blowdowns:        Percent(b.Blowdowns, b.Total),
		EquipmentLeaks:   Percent(b.EquipmentLeaks, b.Total),
	}
	return b
}

// Percent returns part/total*100 rounded half-up to two decimals, or 0 when
// total is 0.
func Percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	var p, t, q apd.Decimal
	if _, err := p.SetFloat64(part); err != nil {
		return 0
	}
	if _, err := t.SetFloat64(total); err != nil {
		return 0
	}

	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Rounding = apd.RoundHalfUp
	if _, err := ctx.Quo(&q, &p, &t); err != nil {
		return 0
	}
	if _, err := ctx.Mul(&q, &q, apd.New(100, 0)); err != nil {
		return 0
	}
	if _, err := ctx.Quantize(&q, &q, -2); err != nil {
		return 0
	}
	f, err := q.Float64()
	if err != nil {
		return 0
	}
	return f
}
