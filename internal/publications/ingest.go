package publications

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrParse is matched by every error Ingest returns.
var ErrParse = errors.New("content is not valid CSV")

var errNoColumns = errors.New("no columns to parse from file")

// ParseError describes why an upload could not be read as a table.
// Line is 1-based and zero when the problem is not tied to a line.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Missing-value markers, matched after trimming. They become Null cells and
// do not take part in type inference.
var naValues = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"#N/A": {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
}

// Ingest reads comma-separated text with a header row into a Table. Column
// kinds are inferred per column: Int when every present cell is an integer,
// Float when every present cell is a decimal number, String otherwise.
// Records shorter than the header are padded with Null; longer records are
// a parse error.
func Ingest(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("reading upload: %w", err)}
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: errNoColumns}
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, csvError(err)
	}
	columns := normalizeHeader(header)

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		if len(rec) > len(columns) {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{
				Line: line,
				Err:  fmt.Errorf("expected %d fields, saw %d", len(columns), len(rec)),
			}
		}
		records = append(records, rec)
	}

	kinds := make([]Kind, len(columns))
	for j := range columns {
		kinds[j] = inferKind(records, j)
	}

	rows := make([]Row, len(records))
	for i, rec := range records {
		row := make(Row, len(columns))
		for j := range columns {
			if j < len(rec) {
				row[j] = convert(rec[j], kinds[j])
			}
		}
		rows[i] = row
	}
	return &Table{Columns: columns, Kinds: kinds, Rows: rows}, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

// normalizeHeader trims column names, names blank ones "Unnamed: <i>" and
// suffixes repeats with ".1", ".2", ... so every column is addressable.
func normalizeHeader(header []string) []string {
	seen := make(map[string]struct{}, len(header))
	suffix := make(map[string]int)
	out := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		base := name
		for {
			if _, dup := seen[name]; !dup {
				break
			}
			suffix[base]++
			name = base + "." + strconv.Itoa(suffix[base])
		}
		seen[name] = struct{}{}
		out[i] = name
	}
	return out
}

func isNA(s string) bool {
	_, ok := naValues[strings.TrimSpace(s)]
	return ok
}

func inferKind(records [][]string, col int) Kind {
	kind := Int
	present := false
	for _, rec := range records {
		if col >= len(rec) || isNA(rec[col]) {
			continue
		}
		present = true
		s := strings.TrimSpace(rec[col])
		if kind == Int {
			if _, err := strconv.ParseInt(s, 10, 64); err == nil {
				continue
			}
			kind = Float
		}
		if _, ok := parseDecimal(s); !ok {
			return String
		}
	}
	if !present {
		return String
	}
	return kind
}

// parseDecimal accepts plain decimal notation with an optional exponent.
// strconv.ParseFloat alone would also take "inf", hex floats and underscores.
func parseDecimal(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func convert(cell string, kind Kind) Value {
	if isNA(cell) {
		return NullValue()
	}
	s := strings.TrimSpace(cell)
	switch kind {
	case Int:
		i, _ := strconv.ParseInt(s, 10, 64)
		return IntValue(i)
	case Float:
		f, _ := parseDecimal(s)
		return FloatValue(f)
	default:
		return StringValue(cell)
	}
}
