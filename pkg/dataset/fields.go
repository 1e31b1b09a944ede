package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Field is a logical value read from a raw record.
type Field string

const (
	FieldFacility Field = "facility"
	FieldMonth    Field = "month"

	FieldFlareEmissions  Field = "flare_emissions"
	FieldTankEmissions   Field = "tank_emissions"
	FieldBlowdownRelease Field = "blowdown_release"
	FieldTransported     Field = "transported"
	FieldInjected        Field = "injected"
	FieldStored          Field = "stored"
	FieldUtilized        Field = "utilized"
	FieldLeaked          Field = "leaked"
	FieldComponent       Field = "component"

	FieldSourceFlare    Field = "source_flare_stacks"
	FieldSourceTank     Field = "source_atmospheric_tanks"
	FieldSourceBlowdown Field = "source_blowdowns"
	FieldSourceLeak     Field = "source_equipment_leaks"

	FieldOperator     Field = "operator"
	FieldState        Field = "state"
	FieldFacilityType Field = "facility_type"
	FieldLatitude     Field = "latitude"
	FieldLongitude    Field = "longitude"
)

// KeyPair is the two spellings a field may be stored under.
type KeyPair struct {
	Canonical string
	Fallback  string
}

// fieldKeys is the single source of truth for key resolution. Every reader of
// a raw record goes through it.
var fieldKeys = map[Field]KeyPair{
	FieldFacility: {"Facility Name", "facility_name"},
	FieldMonth:    {"Month", "month"},

	FieldFlareEmissions:  {"CO2 Emissions (t)", "co2_emissions"},
	FieldTankEmissions:   {"Annual CO2 (t)", "annual_co2"},
	FieldBlowdownRelease: {"CO2 Released (t)", "co2_released"},
	FieldTransported:     {"CO2 Transported (t)", "co2_transported"},
	FieldInjected:        {"CO2 Injected (t)", "co2_injected"},
	FieldStored:          {"CO2 Stored (t)", "co2_stored"},
	FieldUtilized:        {"CO2 Utilized (t)", "co2_utilized"},
	FieldLeaked:          {"Annual CO2 Leaked (t)", "annual_co2_leaked"},
	FieldComponent:       {"Component", "component"},

	FieldSourceFlare:    {"Flare Stacks (t)", "flare_stacks"},
	FieldSourceTank:     {"Atmospheric Tanks (t)", "atmospheric_tanks"},
	FieldSourceBlowdown: {"Blowdowns (t)", "blowdowns"},
	FieldSourceLeak:     {"Equipment Leaks (t)", "equipment_leaks"},

	FieldOperator:     {"Operator", "operator"},
	FieldState:        {"State", "state"},
	FieldFacilityType: {"Facility Type", "facility_type"},
	FieldLatitude:     {"Latitude", "latitude"},
	FieldLongitude:    {"Longitude", "longitude"},
}

// Raw is one record as it arrives on the wire: a flat object of scalars.
type Raw map[string]any

// String resolves f to a non-blank string, canonical key first.
func (r Raw) String(f Field) (string, bool) {
	kp, ok := fieldKeys[f]
	if !ok {
		return "", false
	}
	for _, key := range [2]string{kp.Canonical, kp.Fallback} {
		if s, ok := scalarString(r[key]); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// Float resolves f to a finite number, canonical key first.
func (r Raw) Float(f Field) (float64, bool) {
	kp, ok := fieldKeys[f]
	if !ok {
		return 0, false
	}
	for _, key := range [2]string{kp.Canonical, kp.Fallback} {
		if v, ok := scalarFloat(r[key]); ok {
			return v, true
		}
	}
	return 0, false
}

// Text is String with the empty-string default.
func (r Raw) Text(f Field) string {
	s, _ := r.String(f)
	return s
}

// Measure is Float with the zero default.
func (r Raw) Measure(f Field) float64 {
	v, _ := r.Float(f)
	return v
}

// Month resolves the month field to a "YYYY-MM" key, or "" when absent.
func (r Raw) Month() string {
	return NormalizeMonth(r.Text(FieldMonth))
}

// NormalizeMonth keeps the "YYYY-MM" prefix of dates and timestamps.
// Values that do not start with one are returned trimmed and unchanged.
func NormalizeMonth(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 7 && isYearMonth(s[:7]) {
		return s[:7]
	}
	return s
}

func isYearMonth(s string) bool {
	if len(s) != 7 || s[4] != '-' {
		return false
	}
	for i, c := range s {
		if i == 4 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func scalarFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
