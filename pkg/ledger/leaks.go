package ledger

import (
	"fmt"

	"github.com/hazyhaar/co2-ledger/pkg/dataset"
)

// UnattributedMonth is the row the Unattributed policy books leaks into.
const UnattributedMonth = "unattributed"

// LeakLedger is the part of the monthly builder a leak policy may touch.
type LeakLedger interface {
	// Months returns the months established by the other collections.
	Months() []string
	// AddLeaks credits tonnes to a month's leak accumulator and total.
	AddLeaks(month string, tonnes float64)
}

// LeakAllocator decides how annual equipment-leak figures, which carry no
// month, land in the monthly roll-up.
type LeakAllocator func(l LeakLedger, leaks []dataset.EquipLeakRecord)

// SpreadEvenly adds one twelfth of each leak record to every month that
// already exists. Months are taken before any leak is booked, and a snapshot
// with no monthly data receives no leak tonnes at all.
func SpreadEvenly(l LeakLedger, leaks []dataset.EquipLeakRecord) {
	months := l.Months()
	if len(months) == 0 {
		return
	}
	for _, r := range leaks {
		share := r.AnnualLeak / 12
		for _, m := range months {
			l.AddLeaks(m, share)
		}
	}
}

// Unattributed books the full annual leak total into a single
// UnattributedMonth row instead of guessing a monthly split.
func Unattributed(l LeakLedger, leaks []dataset.EquipLeakRecord) {
	if len(leaks) == 0 {
		return
	}
	var total float64
	for _, r := range leaks {
		total += r.AnnualLeak
	}
	l.AddLeaks(UnattributedMonth, total)
}

// LeakAllocatorByName maps a config value to a policy. "" selects SpreadEvenly.
func LeakAllocatorByName(name string) (LeakAllocator, error) {
	switch name {
	case "", "spread_evenly":
		return SpreadEvenly, nil
	case "unattributed":
		return Unattributed, nil
	default:
		return nil, fmt.Errorf("unknown leak allocation %q (want spread_evenly or unattributed)", name)
	}
}
