// Package clean derives cleaned tables from an original upload. Every fix
// starts from the table it is given; fixes are never chained.
package clean

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/dqv-cli/internal/analysis"
	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// Fix names one cleaning transformation.
type Fix string

const (
	DropDuplicatesFix Fix = "drop-duplicates"
	FillMeanFix       Fix = "fill-mean"
	DropNullFix       Fix = "drop-null"
)

const (
	// DefaultExportName is the file name offered for the cleaned download.
	DefaultExportName = "cleaned_data.csv"
	// MediaType of the exported file.
	MediaType = "text/csv"
)

// ErrUnknownFix is returned by ParseFix and Apply for unrecognised fixes.
var ErrUnknownFix = errors.New("unknown fix")

// Fixes lists the supported transformations in display order.
func Fixes() []Fix { return []Fix{DropDuplicatesFix, FillMeanFix, DropNullFix} }

// ParseFix accepts the canonical names plus underscore spellings.
func ParseFix(s string) (Fix, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch n {
	case "drop-duplicates", "dedupe":
		return DropDuplicatesFix, nil
	case "fill-mean", "fill-numeric-mean":
		return FillMeanFix, nil
	case "drop-null", "drop-any-null", "dropna":
		return DropNullFix, nil
	}
	return "", fmt.Errorf("%w %q (use drop-duplicates, fill-mean or drop-null)", ErrUnknownFix, s)
}

// Summary describes what a fix changed.
type Summary struct {
	Fix         Fix `json:"fix"`
	RowsBefore  int `json:"rows_before"`
	RowsAfter   int `json:"rows_after"`
	RowsDropped int `json:"rows_dropped"`
	CellsFilled int `json:"cells_filled"`
}

// Apply runs fix against original and returns the new table.
func Apply(original *table.Table, fix Fix) (*table.Table, Summary, error) {
	sum := Summary{Fix: fix, RowsBefore: original.NumRows()}
	var out *table.Table
	switch fix {
	case DropDuplicatesFix:
		out = DropDuplicates(original)
	case FillMeanFix:
		var err error
		out, sum.CellsFilled, err = FillNumericMean(original)
		if err != nil {
			return nil, Summary{}, err
		}
	case DropNullFix:
		out = DropAnyNull(original)
	default:
		return nil, Summary{}, fmt.Errorf("%w %q", ErrUnknownFix, fix)
	}
	sum.RowsAfter = out.NumRows()
	sum.RowsDropped = sum.RowsBefore - sum.RowsAfter
	return out, sum, nil
}

// DropDuplicates keeps the first occurrence of every distinct row.
func DropDuplicates(t *table.Table) *table.Table {
	dups := analysis.DuplicateRows(t)
	if len(dups) == 0 {
		return t
	}
	drop := make(map[int]struct{}, len(dups))
	for _, i := range dups {
		drop[i] = struct{}{}
	}
	keep := make([]int, 0, t.NumRows()-len(dups))
	for i := 0; i < t.NumRows(); i++ {
		if _, ok := drop[i]; !ok {
			keep = append(keep, i)
		}
	}
	return t.Filter(keep)
}

// DropAnyNull removes every row with a null in any column.
func DropAnyNull(t *table.Table) *table.Table {
	if t.NullCount() == 0 {
		return t
	}
	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		ok := true
		for j := 0; j < t.NumCols(); j++ {
			if t.Column(j).At(i).Null {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}
	return t.Filter(keep)
}

// FillNumericMean replaces nulls in numeric columns with the column's mean
// over its own non-null values. Means are taken from t before any column is
// filled. An int column with nulls becomes a float column; columns without
// nulls, all-null columns and non-numeric columns are kept as they are.
func FillNumericMean(t *table.Table) (*table.Table, int, error) {
	type fill struct {
		idx  int
		mean float64
	}
	var fills []fill
	for _, j := range t.NumericColumns() {
		c := t.Column(j)
		if c.NullCount() == 0 {
			continue
		}
		m, ok := analysis.Mean(c)
		if !ok {
			continue
		}
		fills = append(fills, fill{idx: j, mean: m})
	}
	out := t
	filled := 0
	for _, f := range fills {
		c := t.Column(f.idx)
		vals := make([]table.Value, c.Len())
		for i := range vals {
			v := c.At(i)
			switch {
			case v.Null:
				vals[i] = table.FloatValue(f.mean)
				filled++
			case v.Kind == table.KindInt:
				vals[i] = table.FloatValue(float64(v.Int))
			default:
				vals[i] = v
			}
		}
		nc, err := table.NewColumn(c.Name(), table.KindFloat, vals)
		if err != nil {
			return nil, 0, err
		}
		if out, err = out.ReplaceColumn(f.idx, nc); err != nil {
			return nil, 0, err
		}
	}
	return out, filled, nil
}

// Export writes t as the downloadable CSV artifact.
func Export(w io.Writer, t *table.Table) error {
	return table.WriteCSV(w, t)
}
