package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// moments accumulates count, mean, variance and range with Welford's method.
type moments struct {
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
}

func newMoments() moments {
	return moments{min: math.Inf(1), max: math.Inf(-1)}
}

func (m *moments) add(x float64) {
	m.n++
	if x < m.min {
		m.min = x
	}
	if x > m.max {
		m.max = x
	}
	delta := x - m.mean
	m.mean += delta / float64(m.n)
	m.m2 += delta * (x - m.mean)
}

// std is the sample standard deviation (n-1). It is 0 below two values.
func (m moments) std() float64 {
	if m.n < 2 {
		return 0
	}
	return math.Sqrt(m.m2 / float64(m.n-1))
}

func momentsOf(vals []float64) moments {
	m := newMoments()
	for _, v := range vals {
		m.add(v)
	}
	return m
}

// Mean is the mean of a numeric column over its non-null values. ok is false
// for non-numeric or all-null columns.
func Mean(c *table.Column) (mean float64, ok bool) {
	vals, _ := c.Numbers()
	if len(vals) == 0 {
		return 0, false
	}
	m := momentsOf(vals)
	return m.mean, true
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// selectNumeric resolves the column a numeric operation works on. An empty
// name picks the first numeric column in table order.
func selectNumeric(t *table.Table, name, op string) (*table.Column, error) {
	if name == "" {
		idx := t.NumericColumns()
		if len(idx) == 0 {
			return nil, &EmptySelectionError{Operation: op}
		}
		return t.Column(idx[0]), nil
	}
	c, _, ok := t.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if !c.Kind().Numeric() {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotNumeric, name, c.Kind())
	}
	return c, nil
}
