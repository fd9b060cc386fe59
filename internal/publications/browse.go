package publications

// View is everything the publications page renders for one interaction.
type View struct {
	Keyword    string      `json:"keyword"`
	All        *Table      `json:"-"`
	Table      *Table      `json:"table"`
	Total      int         `json:"total"`
	Shown      int         `json:"shown"`
	HasYear    bool        `json:"has_year"`
	YearCounts []YearCount `json:"year_counts,omitempty"`
	MaxCount   int         `json:"-"`
}

// Filtered reports whether a keyword narrowed the table.
func (v View) Filtered() bool { return v.Keyword != "" }

// Browse filters t by keyword. The year counts always cover the whole of t,
// so the trends chart does not change while a keyword is typed.
func Browse(t *Table, keyword string) View {
	filtered := Filter(t, keyword)
	counts, hasYear := AggregateByYear(t)
	view := View{
		Keyword:    keyword,
		All:        t,
		Table:      filtered,
		Total:      t.Len(),
		Shown:      filtered.Len(),
		HasYear:    hasYear,
		YearCounts: counts,
	}
	for _, yc := range counts {
		view.MaxCount = max(view.MaxCount, yc.Count)
	}
	return view
}
