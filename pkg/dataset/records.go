package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// FacilityRecord is one entry of the facility registry.
type FacilityRecord struct {
	Name         string            `json:"facility_name"`
	Operator     string            `json:"operator,omitempty"`
	State        string            `json:"state,omitempty"`
	FacilityType string            `json:"facility_type,omitempty"`
	Latitude     float64           `json:"latitude,omitempty"`
	Longitude    float64           `json:"longitude,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
}

// FlareStackRecord is monthly CO2 emitted by flaring.
type FlareStackRecord struct {
	Facility  string  `json:"facility_name"`
	Month     string  `json:"month"`
	Emissions float64 `json:"co2_emissions"`
}

// AtmosphericTankRecord is monthly CO2 vented from storage tanks.
type AtmosphericTankRecord struct {
	Facility  string  `json:"facility_name"`
	Month     string  `json:"month"`
	Emissions float64 `json:"annual_co2"`
}

// BlowdownRecord is monthly CO2 released by blowdown events.
type BlowdownRecord struct {
	Facility string  `json:"facility_name"`
	Month    string  `json:"month"`
	Released float64 `json:"co2_released"`
}

// TransportRecord is monthly CO2 moved off site.
type TransportRecord struct {
	Facility    string  `json:"facility_name"`
	Month       string  `json:"month"`
	Transported float64 `json:"co2_transported"`
}

// BySourceRecord attributes a facility's monthly emissions to source types.
// Its EquipmentLeaks figure is independent of the EquipLeaks collection.
type BySourceRecord struct {
	Facility         string  `json:"facility_name"`
	Month            string  `json:"month"`
	FlareStacks      float64 `json:"flare_stacks"`
	AtmosphericTanks float64 `json:"atmospheric_tanks"`
	Blowdowns        float64 `json:"blowdowns"`
	EquipmentLeaks   float64 `json:"equipment_leaks"`
}

// InjectionRecord is monthly CO2 injected underground.
type InjectionRecord struct {
	Facility string  `json:"facility_name"`
	Month    string  `json:"month"`
	Injected float64 `json:"co2_injected"`
}

// StorageRecord is monthly CO2 placed in storage.
type StorageRecord struct {
	Facility string  `json:"facility_name"`
	Month    string  `json:"month"`
	Stored   float64 `json:"co2_stored"`
}

// UtilizationRecord is monthly CO2 put to use.
type UtilizationRecord struct {
	Facility string  `json:"facility_name"`
	Month    string  `json:"month"`
	Utilized float64 `json:"co2_utilized"`
}

// EquipLeakRecord is an annual leak figure. It carries no month.
type EquipLeakRecord struct {
	Facility   string  `json:"facility_name"`
	Component  string  `json:"component,omitempty"`
	AnnualLeak float64 `json:"annual_co2_leaked"`
}

// DecodeRaw parses a flat JSON array of objects. Anything but whitespace
// after the array is an error.
func DecodeRaw(data []byte) ([]Raw, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raws []Raw
	if err := dec.Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("decode records: trailing data after array")
	}
	out := raws[:0]
	for _, r := range raws {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// knownKeys is every key the field table knows about; anything else on a
// facility record is kept as an attribute.
var knownKeys = func() map[string]bool {
	m := make(map[string]bool, 2*len(fieldKeys))
	for _, kp := range fieldKeys {
		m[kp.Canonical] = true
		m[kp.Fallback] = true
	}
	return m
}()

func toFacility(r Raw) FacilityRecord {
	rec := FacilityRecord{
		Name:         r.Text(FieldFacility),
		Operator:     r.Text(FieldOperator),
		State:        r.Text(FieldState),
		FacilityType: r.Text(FieldFacilityType),
		Latitude:     r.Measure(FieldLatitude),
		Longitude:    r.Measure(FieldLongitude),
	}
	keys := make([]string, 0, len(r))
	for k := range r {
		if !knownKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, ok := scalarString(r[k])
		if !ok {
			continue
		}
		if rec.Attributes == nil {
			rec.Attributes = make(map[string]string)
		}
		rec.Attributes[k] = s
	}
	return rec
}

func toFlare(r Raw) FlareStackRecord {
	return FlareStackRecord{r.Text(FieldFacility), r.Month(), r.Measure(FieldFlareEmissions)}
}

func toTank(r Raw) AtmosphericTankRecord {
	return AtmosphericTankRecord{r.Text(FieldFacility), r.Month(), r.Measure(FieldTankEmissions)}
}

func toBlowdown(r Raw) BlowdownRecord {
	return BlowdownRecord{r.Text(FieldFacility), r.Month(), r.Measure(FieldBlowdownRelease)}
}

func toTransport(r Raw) TransportRecord {
	return TransportRecord{r.Text(FieldFacility), r.Month(), r.Measure(FieldTransported)}
}

func toBySource(r Raw) BySourceRecord {
	return BySourceRecord{
		Facility:         r.Text(FieldFacility),
		Month:            r.Month(),
		FlareStacks:      r.Measure(FieldSourceFlare),
		AtmosphericTanks: r.Measure(FieldSourceTank),
		Blowdowns:        r.Measure(FieldSourceBlowdown),
		EquipmentLeaks:   r.Measure(FieldSourceLeak),
	}
}

func toInjection(r Raw) InjectionRecord {
	return InjectionRecord{r.Text(FieldFacility), r.Month(), r.Measure(FieldInjected)}
}

func toStorage(r Raw) StorageRecord {
	return StorageRecord{r.Text(FieldFacility), r.Month(), r.Measure(FieldStored)}
}

func toUtilization(r Raw) UtilizationRecord {
	return UtilizationRecord{r.Text(FieldFacility), r.Month(), r.Measure(FieldUtilized)}
}

func toEquipLeak(r Raw) EquipLeakRecord {
	return EquipLeakRecord{r.Text(FieldFacility), r.Text(FieldComponent), r.Measure(FieldLeaked)}
}

func convert[T any](raws []Raw, fn func(Raw) T) []T {
	out := make([]T, len(raws))
	for i, r := range raws {
		out[i] = fn(r)
	}
	return out
}

// FacilityID returns the resolved facility identifier of a record.
func (r FacilityRecord) FacilityID() string        { return r.Name }
func (r FlareStackRecord) FacilityID() string      { return r.Facility }
func (r AtmosphericTankRecord) FacilityID() string { return r.Facility }
func (r BlowdownRecord) FacilityID() string        { return r.Facility }
func (r TransportRecord) FacilityID() string       { return r.Facility }
func (r BySourceRecord) FacilityID() string        { return r.Facility }
func (r InjectionRecord) FacilityID() string       { return r.Facility }
func (r StorageRecord) FacilityID() string         { return r.Facility }
func (r UtilizationRecord) FacilityID() string     { return r.Facility }
func (r EquipLeakRecord) FacilityID() string       { return r.Facility }

// MonthKey returns the resolved "YYYY-MM" month of a record.
func (r FlareStackRecord) MonthKey() string      { return r.Month }
func (r AtmosphericTankRecord) MonthKey() string { return r.Month }
func (r BlowdownRecord) MonthKey() string        { return r.Month }
func (r TransportRecord) MonthKey() string       { return r.Month }
func (r BySourceRecord) MonthKey() string        { return r.Month }
func (r InjectionRecord) MonthKey() string       { return r.Month }
func (r StorageRecord) MonthKey() string         { return r.Month }
func (r UtilizationRecord) MonthKey() string     { return r.Month }
