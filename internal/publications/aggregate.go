package publications

import (
	"cmp"
	"slices"
)

// YearColumn is the column that enables the trends view.
const YearColumn = "Year"

// YearCount is the number of rows sharing one Year value.
type YearCount struct {
	Year  Value `json:"year"`
	Count int   `json:"count"`
}

// AggregateByYear counts rows per distinct Year value, ordered by ascending
// year with missing years first. The boolean is false when the table has no
// Year column.
func AggregateByYear(t *Table) ([]YearCount, bool) {
	if t == nil {
		return nil, false
	}
	col, ok := t.ColumnIndex(YearColumn)
	if !ok {
		return nil, false
	}

	counts := make(map[Value]int)
	for _, row := range t.Rows {
		counts[row[col]]++
	}
	out := make([]YearCount, 0, len(counts))
	for year, n := range counts {
		out = append(out, YearCount{Year: year, Count: n})
	}
	slices.SortFunc(out, func(a, b YearCount) int {
		return Compare(a.Year, b.Year)
	})
	return out, true
}

// Compare orders values for display: Null first, numbers by magnitude,
// strings lexically. Numbers sort before strings when a column mixes them.
func Compare(a, b Value) int {
	if a.Kind == Null || b.Kind == Null {
		return cmp.Compare(rank(a), rank(b))
	}
	an, aNum := a.number()
	bn, bNum := b.number()
	switch {
	case aNum && bNum:
		if a.Kind == Int && b.Kind == Int {
			return cmp.Compare(a.Int, b.Int)
		}
		return cmp.Compare(an, bn)
	case aNum != bNum:
		return cmp.Compare(rank(a), rank(b))
	default:
		return cmp.Compare(a.Str, b.Str)
	}
}

func rank(v Value) int {
	switch v.Kind {
	case Null:
		return 0
	case Int, Float:
		return 1
	default:
		return 2
	}
}

func (v Value) number() (float64, bool) {
	switch v.Kind {
	case Int:
		return float64(v.Int), true
	case Float:
		return v.Float, true
	default:
		return 0, false
	}
}
