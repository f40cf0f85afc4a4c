package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/dqv-cli/internal/table"
)

// OutlierMethod selects how values are standardised.
type OutlierMethod string

const (
	// MethodZScore uses (v - mean) / sample std.
	MethodZScore OutlierMethod = "zscore"
	// MethodMAD uses the robust modified z-score 0.6745 * (v - median) / MAD.
	MethodMAD OutlierMethod = "mad"
)

const (
	DefaultZThreshold   = 3.0
	DefaultMADThreshold = 3.5
)

// ParseOutlierMethod accepts "zscore", "z", "mad" or "" (zscore).
func ParseOutlierMethod(s string) (OutlierMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "z", "zscore", "z-score":
		return MethodZScore, nil
	case "mad", "robust":
		return MethodMAD, nil
	}
	return "", fmt.Errorf("unknown outlier method %q (use zscore or mad)", s)
}

// OutlierOptions configures DetectOutliers. A zero value means z-score with |z| > 3.
type OutlierOptions struct {
	Method    OutlierMethod
	Threshold float64
}

func (o OutlierOptions) withDefaults() OutlierOptions {
	if o.Method == "" {
		o.Method = MethodZScore
	}
	if o.Threshold <= 0 {
		if o.Method == MethodMAD {
			o.Threshold = DefaultMADThreshold
		} else {
			o.Threshold = DefaultZThreshold
		}
	}
	return o
}

// Outlier is one flagged row.
type Outlier struct {
	Row   int     `json:"row"`
	Value float64 `json:"value"`
	Z     float64 `json:"z"`
}

// OutlierReport is the result of DetectOutliers. Center and Scale are the
// mean and sample std for z-score, the median and MAD for the robust method.
type OutlierReport struct {
	Column    string        `json:"column"`
	Method    OutlierMethod `json:"method"`
	Threshold float64       `json:"threshold"`
	// N is the number of non-null values scored; Count the number flagged.
	N         int           `json:"n"`
	Count     int           `json:"count"`
	Center    float64       `json:"center"`
	Scale     float64       `json:"scale"`
	MaxAbsZ   float64       `json:"max_abs_z"`
	Outliers  []Outlier     `json:"outliers"`
	// Rows holds the flagged rows with every original column, in table order.
	Rows *table.Table `json:"-"`
	// Undefined is set when the column has fewer than two values or no spread.
	Undefined *UndefinedStatistic `json:"undefined,omitempty"`
}

// Flagged returns the row indices of the outliers.
func (r *OutlierReport) Flagged() []int {
	out := make([]int, len(r.Outliers))
	for i, o := range r.Outliers {
		out[i] = o.Row
	}
	return out
}

// DetectOutliers flags rows of a numeric column whose standardised value
// exceeds the threshold in absolute terms. An empty column name selects the
// first numeric column; a table without one yields *EmptySelectionError.
// Undefined statistics are reported on the result, not as an error.
func DetectOutliers(t *table.Table, column string, opt OutlierOptions) (*OutlierReport, error) {
	opt = opt.withDefaults()
	if opt.Method != MethodZScore && opt.Method != MethodMAD {
		return nil, fmt.Errorf("unknown outlier method %q", opt.Method)
	}
	c, err := selectNumeric(t, column, "outliers")
	if err != nil {
		return nil, err
	}
	vals, rows := c.Numbers()
	rep := &OutlierReport{
		Column:    c.Name(),
		Method:    opt.Method,
		Threshold: opt.Threshold,
		N:         len(vals),
		Outliers:  []Outlier{},
	}
	if len(vals) < 2 {
		rep.Undefined = &UndefinedStatistic{Statistic: "z-score", Column: c.Name(), Reason: fmt.Sprintf("%d non-null values, need at least 2", len(vals))}
		rep.Rows = t.Filter(nil)
		return rep, nil
	}

	var score func(v float64) float64
	switch opt.Method {
	case MethodMAD:
		median, mad := medianMAD(vals)
		rep.Center, rep.Scale = median, mad
		if mad == 0 {
			rep.Undefined = &UndefinedStatistic{Statistic: "modified z-score", Column: c.Name(), Reason: "median absolute deviation is 0"}
		}
		score = func(v float64) float64 { return 0.6745 * (v - median) / mad }
	default:
		m := momentsOf(vals)
		rep.Center, rep.Scale = m.mean, m.std()
		if rep.Scale == 0 {
			rep.Undefined = &UndefinedStatistic{Statistic: "z-score", Column: c.Name(), Reason: "standard deviation is 0"}
		}
		mean, std := m.mean, rep.Scale
		score = func(v float64) float64 { return (v - mean) / std }
	}
	if rep.Undefined != nil {
		rep.Rows = t.Filter(nil)
		return rep, nil
	}

	var flagged []int
	for k, v := range vals {
		z := score(v)
		az := math.Abs(z)
		if az > rep.MaxAbsZ {
			rep.MaxAbsZ = az
		}
		if az > opt.Threshold {
			rep.Outliers = append(rep.Outliers, Outlier{Row: rows[k], Value: v, Z: z})
			flagged = append(flagged, rows[k])
		}
	}
	rep.Count = len(rep.Outliers)
	rep.Rows = t.Filter(flagged)
	return rep, nil
}
