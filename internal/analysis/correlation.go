package analysis

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric
// columns. Entries with too few paired observations or no variance are
// undefined and never surface as NaN.
type CorrMatrix struct {
	Columns []string
	values  [][]float64
	defined [][]bool
	// paired observation counts
	n [][]int
}

// At returns entry (i, j) and whether it is defined.
func (m *CorrMatrix) At(i, j int) (float64, bool) {
	return m.values[i][j], m.defined[i][j]
}

// Lookup is At by column name.
func (m *CorrMatrix) Lookup(a, b string) (float64, bool) {
	i, j := m.indexOf(a), m.indexOf(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.At(i, j)
}

// Observations is the number of rows where both columns are non-null.
func (m *CorrMatrix) Observations(i, j int) int { return m.n[i][j] }

func (m *CorrMatrix) indexOf(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
	N int     `json:"n"`
}

// Pairs lists the defined off-diagonal entries, strongest |r| first.
func (m *CorrMatrix) Pairs() []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if !m.defined[i][j] {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.values[i][j], N: m.n[i][j]})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	return pairs
}

// MarshalJSON emits undefined entries as null.
func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	vals := make([][]*float64, len(m.Columns))
	for i := range vals {
		vals[i] = make([]*float64, len(m.Columns))
		for j := range vals[i] {
			if m.defined[i][j] {
				v := m.values[i][j]
				vals[i][j] = &v
			}
		}
	}
	return json.Marshal(struct {
		Columns []string     `json:"columns"`
		Values  [][]*float64 `json:"values"`
		Pairs   []PairCorr   `json:"pairs"`
	}{m.Columns, vals, m.Pairs()})
}

// Correlate computes pairwise-complete Pearson correlations over every
// numeric column. Fewer than two numeric columns yields *UndefinedStatistic.
func Correlate(t *table.Table) (*CorrMatrix, error) {
	idx := t.NumericColumns()
	if len(idx) < 2 {
		return nil, &UndefinedStatistic{Statistic: "correlation", Reason: "fewer than 2 numeric columns"}
	}
	k := len(idx)
	m := &CorrMatrix{
		Columns: make([]string, k),
		values:  make([][]float64, k),
		defined: make([][]bool, k),
		n:       make([][]int, k),
	}
	for a := range idx {
		m.Columns[a] = t.Column(idx[a]).Name()
		m.values[a] = make([]float64, k)
		m.defined[a] = make([]bool, k)
		m.n[a] = make([]int, k)
	}
	for a := 0; a < k; a++ {
		ca := t.Column(idx[a])
		vals, _ := ca.Numbers()
		m.n[a][a] = len(vals)
		if mv := momentsOf(vals); mv.std() > 0 {
			m.values[a][a], m.defined[a][a] = 1, true
		}
		for b := a + 1; b < k; b++ {
			r, n, ok := pearson(ca, t.Column(idx[b]))
			m.values[a][b], m.values[b][a] = r, r
			m.defined[a][b], m.defined[b][a] = ok, ok
			m.n[a][b], m.n[b][a] = n, n
		}
	}
	return m, nil
}

// pearson uses only rows where both columns are non-null, computed in two
// passes over the paired values.
func pearson(x, y *table.Column) (r float64, n int, ok bool) {
	var xs, ys []float64
	for i := 0; i < x.Len(); i++ {
		xv, okx := x.At(i).Number()
		yv, oky := y.At(i).Number()
		if okx && oky {
			xs = append(xs, xv)
			ys = append(ys, yv)
		}
	}
	n = len(xs)
	if n < 2 {
		return 0, n, false
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)
	var sxx, syy, sxy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, n, false
	}
	r = sxy / math.Sqrt(sxx*syy)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, n, false
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, n, true
}
