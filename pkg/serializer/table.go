// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package serializer

import (
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"text/tabwriter"
)

// writeTable renders v for a terminal. A list of records becomes one row
// per record with a column per field. A record holding exactly one such
// list prints its other fields as a FIELD/VALUE preamble followed by the
// rows. Anything else is flattened into FIELD/VALUE lines.
func writeTable(out io.Writer, v any) error {
	val := indirect(reflect.ValueOf(v))
	if !val.IsValid() {
		_, err := fmt.Fprintln(out, "<empty>")
		return err
	}

	if isRecordList(val) {
		return writeRows(out, val)
	}

	fields := map[string]any{}
	var list reflect.Value
	lists := 0
	for _, e := range entries(val) {
		if isRecordList(indirect(e.value)) {
			lists++
			list = indirect(e.value)
			continue
		}
		flatten(fields, e.value, e.key)
	}
	if lists != 1 {
		// Zero or several lists: nothing stands out, flatten it all.
		fields = map[string]any{}
		flatten(fields, val, "")
		list = reflect.Value{}
	}

	if len(fields) == 0 && !list.IsValid() {
		_, err := fmt.Fprintln(out, "<empty>")
		return err
	}

	if len(fields) > 0 {
		if err := writeFields(out, fields); err != nil {
			return err
		}
		if list.IsValid() {
			fmt.Fprintln(out)
		}
	}
	if list.IsValid() {
		return writeRows(out, list)
	}
	return nil
}

func writeFields(out io.Writer, fields map[string]any) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, cell(reflect.ValueOf(fields[k])))
	}
	return tw.Flush()
}

// writeRows prints one line per element of list. Columns come from the
// first element; nested lists collapse to their length.
func writeRows(out io.Writer, list reflect.Value) error {
	if list.Len() == 0 {
		_, err := fmt.Fprintln(out, "<none>")
		return err
	}

	var columns []string
	for _, e := range entries(indirect(list.Index(0))) {
		columns = append(columns, e.key)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for i := 0; i < list.Len(); i++ {
		byKey := map[string]reflect.Value{}
		for _, e := range entries(indirect(list.Index(i))) {
			byKey[e.key] = e.value
		}
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = cell(byKey[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func cell(v reflect.Value) string {
	v = indirect(v)
	if !v.IsValid() {
		return "-"
	}
	//nolint:exhaustive // composite kinds collapse, everything else prints
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		if isScalarList(v) {
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = fmt.Sprint(indirect(v.Index(i)).Interface())
			}
			return strings.Join(parts, ",")
		}
		return fmt.Sprint(v.Len())
	case reflect.Struct:
		return fmt.Sprintf("%+v", v.Interface())
	default:
		if s := fmt.Sprint(v.Interface()); s != "" {
			return s
		}
		return "-"
	}
}

type entry struct {
	key   string
	value reflect.Value
}

// entries returns the named members of a struct (json names, declaration
// order) or map (sorted keys).
func entries(v reflect.Value) []entry {
	//nolint:exhaustive // only records have entries
	switch v.Kind() {
	case reflect.Struct:
		var out []entry
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if name, ok := fieldName(t.Field(i)); ok {
				out = append(out, entry{name, v.Field(i)})
			}
		}
		return out
	case reflect.Map:
		out := make([]entry, 0, v.Len())
		for _, k := range v.MapKeys() {
			out = append(out, entry{fmt.Sprint(k.Interface()), v.MapIndex(k)})
		}
		slices.SortFunc(out, func(a, b entry) int { return strings.Compare(a.key, b.key) })
		return out
	default:
		return nil
	}
}

func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch tag {
	case "-":
		return "", false
	case "":
		return f.Name, true
	default:
		return tag, true
	}
}

func flatten(out map[string]any, v reflect.Value, prefix string) {
	v = indirect(v)
	if !v.IsValid() {
		if prefix != "" {
			out[prefix] = nil
		}
		return
	}

	//nolint:exhaustive // composite kinds recurse, everything else is a leaf
	switch v.Kind() {
	case reflect.Struct, reflect.Map:
		for _, e := range entries(v) {
			flatten(out, e.value, joinKey(prefix, e.key))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			flatten(out, v.Index(i), fmt.Sprintf("%s[%d]", prefix, i))
		}
	default:
		if prefix == "" {
			prefix = "value"
		}
		out[prefix] = v.Interface()
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// isRecordList reports whether v is a slice or array of structs or maps.
func isRecordList(v reflect.Value) bool {
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return false
	}
	elem := v.Type().Elem()
	for elem.Kind() == reflect.Pointer {
		elem = elem.Elem()
	}
	if elem.Kind() == reflect.Interface && v.Len() > 0 {
		k := indirect(v.Index(0)).Kind()
		return k == reflect.Struct || k == reflect.Map
	}
	return elem.Kind() == reflect.Struct || elem.Kind() == reflect.Map
}

func isScalarList(v reflect.Value) bool {
	if v.Kind() == reflect.Map {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		//nolint:exhaustive // composite elements are not scalars
		switch indirect(v.Index(i)).Kind() {
		case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
			return false
		}
	}
	return true
}
