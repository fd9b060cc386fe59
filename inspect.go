package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Zachkp/researcher-profile/internal/publications"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	subtleStyle = lipgloss.NewStyle().Faint(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

const barWidth = 40

func newInspectCmd() *cobra.Command {
	var keyword string

	cmd := &cobra.Command{
		Use:   "inspect FILE.csv",
		Short: "Browse a publications CSV in the terminal",
		Long: `inspect reads a publications CSV the same way the site does, applies an
optional keyword filter and prints the table followed by the per-year counts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			t, err := publications.Ingest(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			printView(cmd.OutOrStdout(), filepath.Base(args[0]), publications.Browse(t, keyword))
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "only show rows containing this text (case-insensitive)")
	return cmd
}

func printView(w io.Writer, name string, v publications.View) {
	fmt.Fprintln(w, titleStyle.Render(name))

	cols := make([]string, len(v.Table.Columns))
	for i, c := range v.Table.Columns {
		cols[i] = fmt.Sprintf("%s (%s)", c, v.Table.Kinds[i])
	}
	fmt.Fprintln(w, subtleStyle.Render(strings.Join(cols, ", ")))

	if v.Filtered() {
		fmt.Fprintf(w, "Filtered Results for '%s': %s of %s\n", v.Keyword, humanize.Comma(int64(v.Shown)), humanize.Comma(int64(v.Total)))
	} else {
		fmt.Fprintf(w, "Showing all publications (%s)\n", humanize.Comma(int64(v.Total)))
	}

	rows := make([][]string, 0, v.Shown)
	for _, r := range v.Table.Rows {
		cells := make([]string, len(r))
		for i, cell := range r {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(v.Table.Columns...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, tbl.String())
	if v.Shown == 0 {
		fmt.Fprintln(w, "No publications match.")
	}

	if !v.HasYear {
		fmt.Fprintln(w, "The CSV does not have a 'Year' column to visualize trends.")
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Publication Trends"))
	for _, yc := range v.YearCounts {
		label := yc.Year.String()
		if yc.Year.IsNull() {
			label = "(no year)"
		}
		n := 0
		if v.MaxCount > 0 {
			n = max(yc.Count*barWidth/v.MaxCount, 1)
		}
		fmt.Fprintf(w, "%-9s %s %d\n", label, barStyle.Render(strings.Repeat("█", n)), yc.Count)
	}
}
