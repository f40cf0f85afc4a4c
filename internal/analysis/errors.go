package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownColumn is returned when a named column does not exist.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNotNumeric is returned when a numeric operation names a non-numeric column.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrNoCoordinates is returned when no latitude/longitude pair is found.
	ErrNoCoordinates = errors.New("no coordinates found")
)

// UndefinedStatistic is a soft signal: the statistic cannot be computed for
// this data and the result should be omitted, not shown as NaN or Inf.
type UndefinedStatistic struct {
	Statistic string `json:"statistic"`
	Column    string `json:"column,omitempty"`
	Reason    string `json:"reason"`
}

func (e *UndefinedStatistic) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s undefined for %q: %s", e.Statistic, e.Column, e.Reason)
	}
	return fmt.Sprintf("%s undefined: %s", e.Statistic, e.Reason)
}

// EmptySelectionError reports a column-dependent operation run on a table
// with no qualifying columns. Callers treat it as a no-op.
type EmptySelectionError struct {
	Operation string
}

func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("%s: no numeric columns to select", e.Operation)
}

// IsSoft reports whether err is one of the non-fatal signals above.
func IsSoft(err error) bool {
	var u *UndefinedStatistic
	var s *EmptySelectionError
	return errors.As(err, &u) || errors.As(err, &s)
}
