// Package format renders analysis results as terminal tables.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/clean"
	dqvtable "github.com/KaramelBytes/dqv-cli/internal/table"
)

// NA is printed for undefined statistics.
const NA = "n/a"

const maxBarWidth = 40

func newWriter(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleDefault)
	if title != "" {
		t.SetTitle("%s", title)
	}
	return t
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

// Profile renders dataset totals followed by one row per column.
func Profile(p *analysis.Profile) string {
	sum := newWriter("Dataset")
	sum.AppendHeader(table.Row{"Rows", "Columns", "Missing values", "Duplicate rows"})
	sum.AppendRow(table.Row{p.Rows, p.Cols, p.NullCells, p.DuplicateRows})

	cols := newWriter("Columns")
	cols.AppendHeader(table.Row{"Column", "Type", "Non-null", "Missing", "Distinct", "Dup values", "Min", "Max", "Mean", "Std"})
	for _, c := range p.Columns {
		row := table.Row{c.Name, c.Kind.String(), c.NonNull, c.Nulls, c.Distinct, c.Duplicates}
		if s := c.Stats; s != nil {
			std := NA
			if s.Count > 1 {
				std = num(s.Std)
			}
			row = append(row, num(s.Min), num(s.Max), num(s.Mean), std)
		} else {
			row = append(row, "", "", "", "")
		}
		cols.AppendRow(row)
	}
	return sum.Render() + "\n" + cols.Render()
}

// Outliers renders the flagged rows with their z-scores and every original column.
func Outliers(r *analysis.OutlierReport) string {
	var b strings.Builder
	label := "z"
	if r.Method == analysis.MethodMAD {
		label = "modified z"
	}
	if r.Undefined != nil {
		fmt.Fprintf(&b, "⚠ %s; no outliers reported\n", r.Undefined.Error())
		return b.String()
	}
	fmt.Fprintf(&b, "Found %d outliers in %q (|%s| > %s, n=%d, center %s, scale %s)\n",
		r.Count, r.Column, label, num(r.Threshold), r.N, num(r.Center), num(r.Scale))
	if len(r.Outliers) == 0 {
		return b.String()
	}
	t := newWriter("")
	header := table.Row{"Row", label}
	for _, n := range r.Rows.Names() {
		header = append(header, n)
	}
	t.AppendHeader(header)
	for k, o := range r.Outliers {
		row := table.Row{o.Row, num(o.Z)}
		for _, v := range r.Rows.Row(k) {
			row = append(row, v.String())
		}
		t.AppendRow(row)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// Correlations renders the matrix with undefined entries as n/a, followed by the top pairs.
func Correlations(m *analysis.CorrMatrix, maxPairs int) string {
	t := newWriter("Pearson correlation (pairwise complete)")
	header := table.Row{""}
	for _, c := range m.Columns {
		header = append(header, c)
	}
	t.AppendHeader(header)
	for i, c := range m.Columns {
		row := table.Row{c}
		for j := range m.Columns {
			if v, ok := m.At(i, j); ok {
				row = append(row, strconv.FormatFloat(v, 'f', 2, 64))
			} else {
				row = append(row, NA)
			}
		}
		t.AppendRow(row)
	}
	out := t.Render() + "\n"

	pairs := m.Pairs()
	if maxPairs > 0 && len(pairs) > maxPairs {
		pairs = pairs[:maxPairs]
	}
	if len(pairs) == 0 {
		return out
	}
	pt := newWriter("Strongest pairs")
	pt.AppendHeader(table.Row{"A", "B", "r", "n"})
	for _, p := range pairs {
		pt.AppendRow(table.Row{p.A, p.B, strconv.FormatFloat(p.R, 'f', 3, 64), p.N})
	}
	return out + pt.Render() + "\n"
}

// Coordinates renders the located pair and a preview of its rows.
func Coordinates(c *analysis.CoordinatePair, preview int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found coordinates in %q and %q: %d rows (%d dropped for missing values)\n", c.Lat, c.Lon, c.Rows, c.Dropped)
	if c.OutOfRange > 0 {
		fmt.Fprintf(&b, "⚠ %d rows fall outside latitude ±90 / longitude ±180\n", c.OutOfRange)
	}
	if preview > 0 && c.Points.NumRows() > 0 {
		b.WriteString(Preview(c.Points, preview))
	}
	return b.String()
}

// Distribution renders box statistics and a text histogram.
func Distribution(d *analysis.Distribution) string {
	bx := d.Box
	box := newWriter("Distribution of " + d.Column)
	box.AppendHeader(table.Row{"Count", "Missing", "Min", "Q1", "Median", "Q3", "Max", "Mean", "Std"})
	std := NA
	if bx.Count > 1 {
		std = num(bx.Std)
	}
	box.AppendRow(table.Row{bx.Count, d.Nulls, num(bx.Min), num(bx.Q1), num(bx.Median), num(bx.Q3), num(bx.Max), num(bx.Mean), std})

	peak := 0
	for _, bin := range d.Bins {
		peak = max(peak, bin.Count)
	}
	hist := newWriter("")
	hist.AppendHeader(table.Row{"From", "To", "Count", ""})
	for _, bin := range d.Bins {
		bar := 0
		if peak > 0 {
			bar = bin.Count * maxBarWidth / peak
		}
		hist.AppendRow(table.Row{num(bin.Lo), num(bin.Hi), bin.Count, strings.Repeat("█", bar)})
	}
	return box.Render() + "\n" + hist.Render() + "\n"
}

// Preview renders the first n rows of t.
func Preview(t *dqvtable.Table, n int) string {
	w := newWriter("")
	header := table.Row{}
	for _, name := range t.Names() {
		header = append(header, name)
	}
	w.AppendHeader(header)
	n = min(n, t.NumRows())
	for i := 0; i < n; i++ {
		row := table.Row{}
		for _, v := range t.Row(i) {
			row = append(row, v.String())
		}
		w.AppendRow(row)
	}
	if t.NumRows() > n {
		w.AppendFooter(table.Row{fmt.Sprintf("%d more rows", t.NumRows()-n)})
	}
	return w.Render() + "\n"
}

// CleanSummary is the one-line confirmation printed after a fix.
func CleanSummary(s clean.Summary) string {
	switch s.Fix {
	case clean.DropDuplicatesFix:
		return fmt.Sprintf("✓ Duplicates dropped: %d rows removed (%d → %d)", s.RowsDropped, s.RowsBefore, s.RowsAfter)
	case clean.FillMeanFix:
		return fmt.Sprintf("✓ Numeric missing values filled: %d cells", s.CellsFilled)
	case clean.DropNullFix:
		return fmt.Sprintf("✓ Rows with missing data removed: %d rows removed (%d → %d)", s.RowsDropped, s.RowsBefore, s.RowsAfter)
	}
	return fmt.Sprintf("✓ %s applied", s.Fix)
}
