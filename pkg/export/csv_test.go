package export

import (
	"errors"
	"testing"
	"time"
)

func TestCSV_DefaultColumnsSorted(t *testing.T) {
	rows := []Row{
		{"month": "2025-07", "total": 150.0, "count": 1},
		{"month": "2025-08", "total": 12.5, "count": 2},
	}
	got, err := CSV(rows, nil)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	want := "count,month,total\n1,2025-07,150\n2,2025-08,12.5\n"
	if got != want {
		t.Errorf("CSV =\n%s\nwant\n%s", got, want)
	}
}

func TestCSV_ExplicitColumns(t *testing.T) {
	rows := []Row{{"a": 1, "b": 2, "c": 3}}
	got, err := CSV(rows, []string{"c", "a"})
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if want := "c,a\n3,1\n"; got != want {
		t.Errorf("CSV = %q, want %q", got, want)
	}
}

func TestCSV_Quoting(t *testing.T) {
	rows := []Row{{"name": `Port "Big" Allen, LA`, "note": "line1\nline2"}}
	got, err := CSV(rows, []string{"name", "note"})
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	want := "name,note\n\"Port \"\"Big\"\" Allen, LA\",\"line1\nline2\"\n"
	if got != want {
		t.Errorf("CSV = %q, want %q", got, want)
	}
}

func TestCSV_Empty(t *testing.T) {
	got, err := CSV(nil, []string{"a"})
	if err != nil || got != "" {
		t.Errorf("CSV(nil) = %q, %v", got, err)
	}
}

func TestCSV_InconsistentRows(t *testing.T) {
	tests := []struct {
		name    string
		rows    []Row
		columns []string
	}{
		{"missing explicit column", []Row{{"a": 1}}, []string{"a", "b"}},
		{"extra field with default columns", []Row{{"a": 1}, {"a": 2, "b": 3}}, nil},
		{"different field with default columns", []Row{{"a": 1}, {"b": 2}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CSV(tt.rows, tt.columns)
			if !errors.Is(err, ErrInconsistentRow) {
				t.Errorf("err = %v, want ErrInconsistentRow", err)
			}
		})
	}
}

type label string

func (l label) String() string { return "L:" + string(l) }

func TestFormat(t *testing.T) {
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{0.1, "0.1"},
		{1e6, "1000000"},
		{42, "42"},
		{int64(-3), "-3"},
		{true, "true"},
		{at, "2025-07-01T12:00:00Z"},
		{time.Time{}, ""},
		{[]string{"A", "B"}, "A,B"},
		{label("x"), "L:x"},
		{map[string]string{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
