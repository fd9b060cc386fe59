package publications

import "strings"

// Filter returns the rows where keyword occurs, ignoring case, inside the
// canonical text of at least one cell. Row order is preserved. An empty
// keyword returns t itself.
func Filter(t *Table, keyword string) *Table {
	if keyword == "" || t == nil {
		return t
	}
	needle := strings.ToLower(keyword)
	out := &Table{
		Columns: t.Columns,
		Kinds:   t.Kinds,
		Rows:    make([]Row, 0, len(t.Rows)),
	}
	for _, row := range t.Rows {
		if row.Contains(needle) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Contains reports whether any cell contains needle. needle must already be
// lower case.
func (r Row) Contains(needle string) bool {
	for _, v := range r {
		if strings.Contains(strings.ToLower(v.String()), needle) {
			return true
		}
	}
	return false
}
