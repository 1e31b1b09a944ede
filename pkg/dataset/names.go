package dataset

import "fmt"

// Name identifies one of the ten source collections.
type Name string

const (
	Facilities       Name = "facilities"
	FlareStacks      Name = "flare_stacks"
	AtmosphericTanks Name = "atmospheric_tanks"
	Blowdowns        Name = "blowdowns"
	Transport        Name = "transport"
	BySource         Name = "by_source"
	Injection        Name = "injection"
	Storage          Name = "storage"
	Utilization      Name = "utilization"
	EquipLeaks       Name = "equip_leaks"
)

// Spec describes where a collection lives and what it holds.
type Spec struct {
	Name        Name   `json:"name" yaml:"name"`
	File        string `json:"file" yaml:"file"`
	Description string `json:"description" yaml:"description"`
	HasMonth    bool   `json:"has_month" yaml:"has_month"`
}

var specs = []Spec{
	{Facilities, "Facilities.json", "Facility registry", false},
	{FlareStacks, "FlareStacks.json", "Flare stack CO2 emissions", true},
	{AtmosphericTanks, "AtmosphericTanks.json", "Atmospheric tank CO2 emissions", true},
	{Blowdowns, "Blowdowns.json", "Blowdown CO2 releases", true},
	{Transport, "Transport.json", "CO2 transported by pipeline or truck", true},
	{BySource, "BySource.json", "Emissions attributed by source category", true},
	{Injection, "Injection.json", "CO2 injected underground", true},
	{Storage, "Storage.json", "CO2 placed in storage", true},
	{Utilization, "Utilization.json", "CO2 utilized or sold", true},
	{EquipLeaks, "EquipLeaks.json", "Annual equipment leak CO2", false},
}

// All returns the ten collection specs in a fixed order.
func All() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

// Lookup returns the spec for name.
func Lookup(name Name) (Spec, error) {
	for _, s := range specs {
		if s.Name == name {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("unknown dataset: %q", name)
}
