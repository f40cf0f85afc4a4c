package analysis

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// DefaultBins is the histogram resolution used when none is requested.
const DefaultBins = 50

// Bin is a histogram bucket covering [Lo, Hi); the last bin also includes Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// BoxStats are the five-number summary plus mean and sample std.
type BoxStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// IQR is the interquartile range.
func (b BoxStats) IQR() float64 { return b.Q3 - b.Q1 }

// Distribution describes the shape of one numeric column.
type Distribution struct {
	Column string   `json:"column"`
	Nulls  int      `json:"nulls"`
	Bins   []Bin    `json:"bins"`
	Box    BoxStats `json:"box"`
}

// Distribute builds an equal-width histogram and box statistics for a numeric
// column. Column selection follows DetectOutliers. bins <= 0 means
// DefaultBins. A constant column yields one bin holding every value.
func Distribute(t *table.Table, column string, bins int) (*Distribution, error) {
	c, err := selectNumeric(t, column, "distribution")
	if err != nil {
		return nil, err
	}
	if bins <= 0 {
		bins = DefaultBins
	}
	vals, _ := c.Numbers()
	if len(vals) == 0 {
		return nil, &UndefinedStatistic{Statistic: "distribution", Column: c.Name(), Reason: "no non-null values"}
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	m := momentsOf(vals)
	d := &Distribution{
		Column: c.Name(),
		Nulls:  c.NullCount(),
		Box: BoxStats{
			Count:  m.n,
			Min:    m.min,
			Q1:     quantile(sorted, 0.25),
			Median: quantile(sorted, 0.5),
			Q3:     quantile(sorted, 0.75),
			Max:    m.max,
			Mean:   m.mean,
			Std:    m.std(),
		},
	}
	d.Bins = histogram(sorted, m.min, m.max, bins)
	return d, nil
}

func histogram(vals []float64, lo, hi float64, bins int) []Bin {
	if lo == hi {
		return []Bin{{Lo: lo, Hi: hi, Count: len(vals)}}
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi
	for _, v := range vals {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}
	return out
}

// String is a one-line summary for logs.
func (d *Distribution) String() string {
	b := d.Box
	return fmt.Sprintf("%s: n=%d min=%.4g q1=%.4g median=%.4g q3=%.4g max=%.4g", d.Column, b.Count, b.Min, b.Q1, b.Median, b.Q3, b.Max)
}
