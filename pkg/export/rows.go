package export

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Rows flattens a slice of structs into Rows. Column names come from json
// tags; nested structs are prefixed with their parent ("registry.operator").
// The returned columns keep struct field order.
func Rows[T any](items []T) ([]Row, []string, error) {
	rows := make([]Row, 0, len(items))
	var columns []string
	for i, item := range items {
		row := make(Row)
		var cols []string
		if err := flatten(reflect.ValueOf(item), "", row, &cols); err != nil {
			return nil, nil, fmt.Errorf("item %d: %w", i, err)
		}
		if i == 0 {
			columns = cols
		}
		rows = append(rows, row)
	}
	return rows, columns, nil
}

func flatten(v reflect.Value, prefix string, row Row, cols *[]string) error {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("cannot flatten %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := columnName(f)
		if name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		fv := v.Field(i)
		if fv.Kind() == reflect.Struct && fv.Type() != timeType {
			if err := flatten(fv, name, row, cols); err != nil {
				return err
			}
			continue
		}
		row[name] = fv.Interface()
		*cols = append(*cols, name)
	}
	return nil
}

func columnName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return f.Name
	}
	return name
}
