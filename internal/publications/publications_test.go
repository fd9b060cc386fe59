package publications

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `Title,Year,Journal,Citations
Trypanosome kinase docking,2021,Bioinformatics,12
Cyclooxygenase-1 inhibitors,2019,Journal of Molecular Graphics,30
Protein-protein interactions in HAT,2021,PLoS ONE,7
Sweet potato dsRNA analysis,2016,Plant Disease,3
`

func mustIngest(t *testing.T, content string) *Table {
	t.Helper()
	tbl, err := Ingest(strings.NewReader(content))
	require.NoError(t, err)
	return tbl
}

func titles(t *Table) []string {
	col, _ := t.ColumnIndex("Title")
	out := make([]string, 0, t.Len())
	for _, row := range t.Rows {
		out = append(out, row[col].String())
	}
	return out
}

func TestIngest(t *testing.T) {
	t.Run("infers column kinds", func(t *testing.T) {
		tbl := mustIngest(t, sampleCSV)
		assert.Equal(t, []string{"Title", "Year", "Journal", "Citations"}, tbl.Columns)
		assert.Equal(t, []Kind{String, Int, String, Int}, tbl.Kinds)
		assert.Equal(t, 4, tbl.Len())
		assert.Equal(t, IntValue(2019), tbl.Rows[1][1])
	})

	t.Run("float column", func(t *testing.T) {
		tbl := mustIngest(t, "Title,Impact\nA,2.5\nB,3\n")
		assert.Equal(t, Float, tbl.Kinds[1])
		assert.Equal(t, "2.5", tbl.Rows[0][1].String())
		assert.Equal(t, "3.0", tbl.Rows[1][1].String())
	})

	t.Run("missing values are null and do not change kind", func(t *testing.T) {
		tbl := mustIngest(t, "Title,Year\nA,2020\nB,\nC,NaN\n")
		assert.Equal(t, Int, tbl.Kinds[1])
		assert.True(t, tbl.Rows[1][1].IsNull())
		assert.True(t, tbl.Rows[2][1].IsNull())
	})

	t.Run("mixed column falls back to string", func(t *testing.T) {
		tbl := mustIngest(t, "Title,Year\nA,2020\nB,in press\n")
		assert.Equal(t, String, tbl.Kinds[1])
		assert.Equal(t, StringValue("2020"), tbl.Rows[0][1])
	})

	t.Run("inf and hex are not numbers", func(t *testing.T) {
		tbl := mustIngest(t, "A,B\ninf,0x10\n")
		assert.Equal(t, []Kind{String, String}, tbl.Kinds)
	})

	t.Run("short records are padded", func(t *testing.T) {
		tbl := mustIngest(t, "Title,Year,Journal\nA,2020\n")
		require.Len(t, tbl.Rows, 1)
		assert.True(t, tbl.Rows[0][2].IsNull())
	})

	t.Run("header only", func(t *testing.T) {
		tbl := mustIngest(t, "Title,Year\n")
		assert.Equal(t, 0, tbl.Len())
		assert.NotNil(t, tbl.Rows)
	})

	t.Run("byte order mark", func(t *testing.T) {
		tbl := mustIngest(t, "\ufeffTitle,Year\nA,2020\n")
		idx, ok := tbl.ColumnIndex("Title")
		assert.True(t, ok)
		assert.Zero(t, idx)
	})

	t.Run("header names are normalized", func(t *testing.T) {
		tbl := mustIngest(t, " Title ,,Title,Title.1,Title\n1,2,3,4,5\n")
		want := []string{"Title", "Unnamed: 1", "Title.1", "Title.1.1", "Title.2"}
		if diff := cmp.Diff(want, tbl.Columns); diff != "" {
			t.Errorf("columns mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("quoted fields keep commas", func(t *testing.T) {
		tbl := mustIngest(t, "Title,Year\n\"Docking, scoring and ranking\",2022\n")
		assert.Equal(t, "Docking, scoring and ranking", tbl.Rows[0][0].String())
	})
}

func TestIngestErrors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLine int
	}{
		{name: "empty", content: ""},
		{name: "whitespace", content: "  \n\n\t"},
		{name: "bare BOM", content: "\ufeff"},
		{name: "bare quote", content: "Title,Year\nA \"quoted\" title,2020\n", wantLine: 2},
		{name: "too many fields", content: "Title,Year\nA,2020\nB,2021,extra\n", wantLine: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Ingest(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Nil(t, tbl)
			assert.True(t, errors.Is(err, ErrParse))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantLine, pe.Line)
		})
	}
}

func TestFilter(t *testing.T) {
	tbl := mustIngest(t, sampleCSV)

	t.Run("empty keyword is identity", func(t *testing.T) {
		assert.Same(t, tbl, Filter(tbl, ""))
	})

	t.Run("case insensitive partial match", func(t *testing.T) {
		got := Filter(tbl, "PROTEIN")
		assert.Equal(t, []string{"Protein-protein interactions in HAT"}, titles(got))
	})

	t.Run("matches numeric cells by text", func(t *testing.T) {
		got := Filter(tbl, "2021")
		assert.Equal(t, []string{"Trypanosome kinase docking", "Protein-protein interactions in HAT"}, titles(got))
	})

	t.Run("no regex", func(t *testing.T) {
		assert.Equal(t, 0, Filter(tbl, "Tryp.*").Len())
	})

	t.Run("empty result keeps columns", func(t *testing.T) {
		got := Filter(tbl, "zebrafish")
		assert.Equal(t, 0, got.Len())
		assert.Equal(t, tbl.Columns, got.Columns)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		Filter(tbl, "plant")
		assert.Equal(t, 4, tbl.Len())
	})
}

func TestFilterProperties(t *testing.T) {
	tbl := mustIngest(t, sampleCSV)
	for _, kw := range []string{"a", "in", "20", "HAT", "ol", "-", "x"} {
		t.Run(kw, func(t *testing.T) {
			got := Filter(tbl, kw)
			needle := strings.ToLower(kw)

			kept := 0
			for _, row := range tbl.Rows {
				if row.Contains(needle) {
					require.Less(t, kept, got.Len())
					assert.Equal(t, row, got.Rows[kept])
					kept++
				}
			}
			assert.Equal(t, kept, got.Len(), "kept rows must be exactly the matching rows")

			if diff := cmp.Diff(got, Filter(got, kw)); diff != "" {
				t.Errorf("filter not idempotent (-once +twice):\n%s", diff)
			}
		})
	}
}

func TestAggregateByYear(t *testing.T) {
	t.Run("no year column", func(t *testing.T) {
		tbl := mustIngest(t, "Title,Journal\nA,B\n")
		counts, ok := AggregateByYear(tbl)
		assert.False(t, ok)
		assert.Nil(t, counts)
	})

	t.Run("column name is case sensitive", func(t *testing.T) {
		_, ok := AggregateByYear(mustIngest(t, "Title,year\nA,2020\n"))
		assert.False(t, ok)
	})

	t.Run("nil table", func(t *testing.T) {
		_, ok := AggregateByYear(nil)
		assert.False(t, ok)
	})

	t.Run("sorted ascending and sums to row count", func(t *testing.T) {
		tbl := mustIngest(t, sampleCSV)
		counts, ok := AggregateByYear(tbl)
		require.True(t, ok)
		want := []YearCount{
			{Year: IntValue(2016), Count: 1},
			{Year: IntValue(2019), Count: 1},
			{Year: IntValue(2021), Count: 2},
		}
		if diff := cmp.Diff(want, counts); diff != "" {
			t.Errorf("counts mismatch (-want +got):\n%s", diff)
		}

		total := 0
		for i, yc := range counts {
			total += yc.Count
			if i > 0 {
				assert.Negative(t, Compare(counts[i-1].Year, yc.Year))
			}
		}
		assert.Equal(t, tbl.Len(), total)
	})

	t.Run("numeric order not lexical", func(t *testing.T) {
		counts, ok := AggregateByYear(mustIngest(t, "Year\n999\n2001\n"))
		require.True(t, ok)
		assert.Equal(t, IntValue(999), counts[0].Year)
	})

	t.Run("missing years counted first", func(t *testing.T) {
		counts, ok := AggregateByYear(mustIngest(t, "Title,Year\nA,2020\nB,\n"))
		require.True(t, ok)
		require.Len(t, counts, 2)
		assert.True(t, counts[0].Year.IsNull())
		assert.Equal(t, 1, counts[0].Count)
	})

	t.Run("string years", func(t *testing.T) {
		counts, ok := AggregateByYear(mustIngest(t, "Year\n2020b\n2020a\n2020a\n"))
		require.True(t, ok)
		assert.Equal(t, []YearCount{
			{Year: StringValue("2020a"), Count: 2},
			{Year: StringValue("2020b"), Count: 1},
		}, counts)
	})

	t.Run("empty table with year column", func(t *testing.T) {
		counts, ok := AggregateByYear(mustIngest(t, "Title,Year\n"))
		assert.True(t, ok)
		assert.Empty(t, counts)
	})
}

func TestBrowseScenario(t *testing.T) {
	tbl := mustIngest(t, "Title,Year\nA,2020\nB,2019\nAb,2020\n")

	view := Browse(tbl, "a")
	assert.Equal(t, []string{"A", "Ab"}, titles(view.Table))
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 2, view.Shown)
	assert.True(t, view.Filtered())

	counts, ok := AggregateByYear(tbl)
	require.True(t, ok)
	assert.Equal(t, []YearCount{
		{Year: IntValue(2019), Count: 1},
		{Year: IntValue(2020), Count: 2},
	}, counts)

	assert.True(t, view.HasYear)
	assert.Equal(t, counts, view.YearCounts, "year counts cover the whole upload, not the filtered rows")
	assert.Equal(t, 2, view.MaxCount)
	assert.Same(t, tbl, view.All)

	empty := Browse(tbl, "zebrafish")
	assert.Zero(t, empty.Shown)
	assert.Equal(t, counts, empty.YearCounts)
}

func TestTableJSON(t *testing.T) {
	tbl := mustIngest(t, "Title,Year,Impact\nA,2020,3\nB,,2.5\n")

	data, err := json.Marshal(tbl)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"columns": ["Title", "Year", "Impact"],
		"kinds": ["string", "int", "float"],
		"rows": [["A", 2020, 3], ["B", null, 2.5]]
	}`, string(data))

	var back Table
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(tbl, &back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "3.0", back.Rows[0][2].String())

	t.Run("rejects ragged rows", func(t *testing.T) {
		err := json.Unmarshal([]byte(`{"columns":["A"],"kinds":["int"],"rows":[[1,2]]}`), &back)
		assert.Error(t, err)
	})
}
