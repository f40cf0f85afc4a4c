package analysis

import (
	"strconv"

	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// Profile summarises the shape and health of a table.
type Profile struct {
	Rows          int             `json:"rows"`
	Cols          int             `json:"columns"`
	NullCells     int             `json:"null_cells"`
	DuplicateRows int             `json:"duplicate_rows"`
	Columns       []ColumnProfile `json:"schema"`
}

// ColumnProfile captures inferred type and statistics per column.
type ColumnProfile struct {
	Name    string     `json:"name"`
	Kind    table.Kind `json:"kind"`
	NonNull int        `json:"non_null"`
	Nulls   int        `json:"nulls"`
	// Distinct counts different non-null values; Duplicates counts non-null
	// values equal to an earlier value in the same column.
	Distinct      int           `json:"distinct"`
	Duplicates    int           `json:"duplicates"`
	HasDuplicates bool          `json:"has_duplicates"`
	Stats         *NumericStats `json:"stats,omitempty"`
}

// NumericStats is only present for int and float columns with at least one value.
type NumericStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	// Std is the sample standard deviation; 0 with fewer than two values.
	Std float64 `json:"std"`
}

// NumericColumns lists the names of numeric columns in table order.
func (p *Profile) NumericColumns() []string {
	var out []string
	for _, c := range p.Columns {
		if c.Kind.Numeric() {
			out = append(out, c.Name)
		}
	}
	return out
}

// ProfileTable computes a Profile. It never fails; an empty table yields zero counts.
func ProfileTable(t *table.Table) *Profile {
	p := &Profile{
		Rows:          t.NumRows(),
		Cols:          t.NumCols(),
		NullCells:     t.NullCount(),
		DuplicateRows: len(DuplicateRows(t)),
		Columns:       make([]ColumnProfile, t.NumCols()),
	}
	for j := 0; j < t.NumCols(); j++ {
		p.Columns[j] = profileColumn(t.Column(j))
	}
	return p
}

func profileColumn(c *table.Column) ColumnProfile {
	cp := ColumnProfile{
		Name:    c.Name(),
		Kind:    c.Kind(),
		Nulls:   c.NullCount(),
		NonNull: c.Len() - c.NullCount(),
	}
	seen := make(map[string]struct{}, c.Len())
	for i := 0; i < c.Len(); i++ {
		v := c.At(i)
		if v.Null {
			continue
		}
		k := valueKey(v)
		if _, dup := seen[k]; dup {
			cp.Duplicates++
			continue
		}
		seen[k] = struct{}{}
	}
	cp.Distinct = len(seen)
	cp.HasDuplicates = cp.Duplicates > 0

	if vals, _ := c.Numbers(); len(vals) > 0 {
		m := momentsOf(vals)
		cp.Stats = &NumericStats{Count: m.n, Min: m.min, Max: m.max, Mean: m.mean, Std: m.std()}
	}
	return cp
}

// DuplicateRows returns the indices of rows equal across every column to an
// earlier row. Each repeat is listed once; first occurrences are not.
func DuplicateRows(t *table.Table) []int {
	seen := make(map[string]struct{}, t.NumRows())
	var out []int
	for i := 0; i < t.NumRows(); i++ {
		k := t.RowKey(i)
		if _, ok := seen[k]; ok {
			out = append(out, i)
			continue
		}
		seen[k] = struct{}{}
	}
	return out
}

// valueKey identifies a non-null value within a single-kind column.
func valueKey(v table.Value) string {
	switch v.Kind {
	case table.KindFloat:
		f := v.Float
		if f == 0 {
			f = 0
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case table.KindInt:
		return strconv.FormatInt(v.Int, 10)
	case table.KindBool:
		return strconv.FormatBool(v.Bool)
	}
	return v.Text
}
