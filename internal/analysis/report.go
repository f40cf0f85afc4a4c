package analysis

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// ReportOptions controls BuildReport.
type ReportOptions struct {
	// SampleRows determines how many example rows to include in the report;
	// 0 leaves the sample section out.
	SampleRows int
	// Outliers configures the per-column outlier scan.
	Outliers OutlierOptions
	// MaxPairs caps the correlation pairs listed; 0 means 10.
	MaxPairs int
}

// DefaultReportOptions returns reasonable defaults for a quality report.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{SampleRows: 5, MaxPairs: 10}
}

// Report is a markdown-friendly quality report of one table.
type Report struct {
	Name     string           `json:"name"`
	Profile  *Profile         `json:"profile"`
	Outliers []*OutlierReport `json:"outliers"`
	Corr     *CorrMatrix      `json:"correlations,omitempty"`
	Coords   *CoordinatePair  `json:"coordinates,omitempty"`
	Samples  [][]string       `json:"samples"`
	Warnings []string         `json:"warnings"`

	maxPairs int
}

// BuildReport runs every analysis over t. Soft signals become warnings.
func BuildReport(name string, t *table.Table, opt ReportOptions) *Report {
	if opt.SampleRows < 0 {
		opt.SampleRows = 0
	}
	if opt.MaxPairs <= 0 {
		opt.MaxPairs = 10
	}
	r := &Report{Name: name, Profile: ProfileTable(t), Warnings: []string{}, maxPairs: opt.MaxPairs}

	for _, j := range t.NumericColumns() {
		o, err := DetectOutliers(t, t.Column(j).Name(), opt.Outliers)
		if err != nil {
			r.Warnings = append(r.Warnings, err.Error())
			continue
		}
		if o.Undefined != nil {
			r.Warnings = append(r.Warnings, o.Undefined.Error())
		}
		r.Outliers = append(r.Outliers, o)
	}
	if len(r.Outliers) == 0 {
		r.Warnings = append(r.Warnings, (&EmptySelectionError{Operation: "outliers"}).Error())
	}

	corr, err := Correlate(t)
	switch {
	case err == nil:
		r.Corr = corr
	case IsSoft(err):
		r.Warnings = append(r.Warnings, err.Error())
	}

	coords, err := LocateCoordinates(t)
	switch {
	case err == nil:
		r.Coords = coords
		if coords.OutOfRange > 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("%d coordinate rows fall outside latitude ±90 / longitude ±180", coords.OutOfRange))
		}
	case errors.Is(err, ErrNoCoordinates):
	default:
		r.Warnings = append(r.Warnings, err.Error())
	}

	if r.Profile.DuplicateRows > 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d duplicate rows (fix with drop-duplicates)", r.Profile.DuplicateRows))
	}

	n := min(opt.SampleRows, t.NumRows())
	for i := 0; i < n; i++ {
		row := t.Row(i)
		s := make([]string, len(row))
		for j, v := range row {
			s[j] = v.String()
		}
		r.Samples = append(r.Samples, s)
	}
	return r
}

func (r *Report) outliersFor(name string) *OutlierReport {
	for _, o := range r.Outliers {
		if o.Column == name {
			return o
		}
	}
	return nil
}

// Markdown renders a compact report suitable for standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	p := r.Profile
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", p.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", p.Cols))
	b.WriteString(fmt.Sprintf("Null cells: %d\n", p.NullCells))
	b.WriteString(fmt.Sprintf("Duplicate rows: %d\n\n", p.DuplicateRows))

	b.WriteString("[SCHEMA]\n")
	for _, c := range p.Columns {
		missPct := 0.0
		if total := c.NonNull + c.Nulls; total > 0 {
			missPct = float64(c.Nulls) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%, distinct %d)", safeName(c.Name), c.Kind, c.NonNull, missPct, c.Distinct))
		if s := c.Stats; s != nil {
			b.WriteString(fmt.Sprintf(" — min %.4g, max %.4g, mean %.4g, std %.4g", s.Min, s.Max, s.Mean, s.Std))
		}
		if o := r.outliersFor(c.Name); o != nil && o.Undefined == nil {
			b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", len(o.Outliers), o.Threshold))
			if o.MaxAbsZ > 0 {
				b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", o.MaxAbsZ))
			}
		}
		b.WriteString("\n")
	}

	if r.Corr != nil {
		pairs := r.Corr.Pairs()
		if len(pairs) > 0 {
			b.WriteString("\n[CORRELATIONS]\n")
			if len(pairs) > r.maxPairs && r.maxPairs > 0 {
				pairs = pairs[:r.maxPairs]
			}
			for _, pc := range pairs {
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f (n=%d)\n", safeName(pc.A), safeName(pc.B), pc.R, pc.N))
			}
		}
	}

	if r.Coords != nil {
		b.WriteString("\n[COORDINATES]\n")
		b.WriteString(fmt.Sprintf("- %s / %s: %d rows", safeName(r.Coords.Lat), safeName(r.Coords.Lon), r.Coords.Rows))
		if r.Coords.Dropped > 0 {
			b.WriteString(fmt.Sprintf(" (%d dropped for missing values)", r.Coords.Dropped))
		}
		b.WriteString("\n")
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range p.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(safeName(c.Name)))
		}
		b.WriteString(" |\n| ")
		for i := range p.Columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i, val := range row {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(safeVal(truncate(val, 80)))
			}
			b.WriteString(" |\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

// truncate shortens s to at most limit runes, ending in "...".
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-3]) + "..."
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
