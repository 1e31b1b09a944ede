// Package export renders aggregate views as delimited text.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInconsistentRow is returned when a row lacks one of the export columns,
// or, with default columns, carries fields the first row does not.
var ErrInconsistentRow = errors.New("row does not match export columns")

// Row is one flat record keyed by column name.
type Row map[string]any

// CSV writes a header line followed by one line per row. With no columns
// given, the first row's fields are used in sorted order. Quoting follows
// RFC 4180: fields holding commas, quotes or newlines are quoted and
// embedded quotes are doubled. Empty input yields "".
func CSV(rows []Row, columns []string) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}

	strict := len(columns) == 0
	if strict {
		columns = make([]string, 0, len(rows[0]))
		for k := range rows[0] {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(columns))
	for i, row := range rows {
		if strict && len(row) != len(columns) {
			return "", fmt.Errorf("row %d has %d fields, want %d: %w", i, len(row), len(columns), ErrInconsistentRow)
		}
		for j, col := range columns {
			v, ok := row[col]
			if !ok {
				return "", fmt.Errorf("row %d missing column %q: %w", i, col, ErrInconsistentRow)
			}
			record[j] = Format(v)
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return sb.String(), nil
}

// Format renders one cell value.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	case []string:
		return strings.Join(t, ",")
	case fmt.Stringer:
		return t.String()
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
