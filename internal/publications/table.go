// Package publications implements the publication browser: CSV ingestion into
// a typed Table, case-insensitive keyword filtering and the count-by-year
// aggregation that drives the trends chart.
//
// Every function in this package is pure. Tables are never mutated after
// Ingest returns them, so a Table may be shared between Filter results and
// the session cache without copying.
package publications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind uint8

const (
	Null Kind = iota
	String
	Int
	Float
)

var kindNames = map[Kind]string{
	Null:   "null",
	String: "string",
	Int:    "int",
	Float:  "float",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown column kind %q", text)
}

// Value is a single cell. Only the field matching Kind is meaningful.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
}

func StringValue(s string) Value { return Value{Kind: String, Str: s} }

func IntValue(i int64) Value { return Value{Kind: Int, Int: i} }

func FloatValue(f float64) Value { return Value{Kind: Float, Float: f} }

func NullValue() Value { return Value{} }

func (v Value) IsNull() bool { return v.Kind == Null }

// String returns the canonical text of the cell. This is the form the
// keyword filter matches against. Integral floats keep a trailing ".0" so a
// float column never renders like an int column.
func (v Value) String() string {
	switch v.Kind {
	case String:
		return v.Str
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		s := strconv.FormatFloat(v.Float, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return ""
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case String:
		return json.Marshal(v.Str)
	case Int:
		return json.Marshal(v.Int)
	case Float:
		return json.Marshal(v.Float)
	default:
		return []byte("null"), nil
	}
}

// Row is one record; cells are positional and line up with Table.Columns.
type Row []Value

// Table is an uploaded publication list.
type Table struct {
	Columns []string
	Kinds   []Kind
	Rows    []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

type tableJSON struct {
	Columns []string            `json:"columns"`
	Kinds   []Kind              `json:"kinds"`
	Rows    [][]json.RawMessage `json:"rows"`
}

func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{
		Columns: t.Columns,
		Kinds:   t.Kinds,
		Rows:    make([][]json.RawMessage, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		cells := make([]json.RawMessage, len(row))
		for j, v := range row {
			b, err := v.MarshalJSON()
			if err != nil {
				return nil, err
			}
			cells[j] = b
		}
		out.Rows = append(out.Rows, cells)
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a table written by MarshalJSON, using the column
// kinds to tell ints from integral floats.
func (t *Table) UnmarshalJSON(data []byte) error {
	var in tableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Kinds) != len(in.Columns) {
		return fmt.Errorf("table has %d columns but %d kinds", len(in.Columns), len(in.Kinds))
	}
	rows := make([]Row, 0, len(in.Rows))
	for i, cells := range in.Rows {
		if len(cells) != len(in.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(cells), len(in.Columns))
		}
		row := make(Row, len(cells))
		for j, raw := range cells {
			v, err := decodeCell(raw, in.Kinds[j])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", i, in.Columns[j], err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	t.Columns = in.Columns
	t.Kinds = in.Kinds
	t.Rows = rows
	return nil
}

func decodeCell(raw json.RawMessage, kind Kind) (Value, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return NullValue(), nil
	}
	switch kind {
	case Int:
		var i int64
		err := json.Unmarshal(raw, &i)
		return IntValue(i), err
	case Float:
		var f float64
		err := json.Unmarshal(raw, &f)
		return FloatValue(f), err
	case String:
		var s string
		err := json.Unmarshal(raw, &s)
		return StringValue(s), err
	default:
		return Value{}, fmt.Errorf("non-null cell in %s column", kind)
	}
}
