package analysis

import (
	"slices"
	"strings"

	"github.com/KaramelBytes/dqv-cli/internal/table"
)

var (
	latNames = []string{"lat", "latitude", "latit"}
	lonNames = []string{"lon", "longitude", "long"}
)

// CoordinatePair is the first latitude-like and first longitude-like column
// of a table, with rows missing either value removed.
type CoordinatePair struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
	// Points has exactly the two columns, original names kept.
	Points  *table.Table `json:"-"`
	Rows    int          `json:"rows"`
	Dropped int          `json:"dropped"`
	// OutOfRange counts kept rows with latitude outside ±90 or longitude
	// outside ±180. Such rows are not removed.
	OutOfRange int `json:"out_of_range"`
}

// LocateCoordinates matches trimmed column names case-insensitively against
// the latitude and longitude synonym sets. It returns ErrNoCoordinates unless
// both sets match.
func LocateCoordinates(t *table.Table) (*CoordinatePair, error) {
	lat, lon := -1, -1
	for j, name := range t.Names() {
		n := strings.ToLower(strings.TrimSpace(name))
		if lat < 0 && slices.Contains(latNames, n) {
			lat = j
		}
		if lon < 0 && slices.Contains(lonNames, n) {
			lon = j
		}
	}
	if lat < 0 || lon < 0 {
		return nil, ErrNoCoordinates
	}
	latCol, lonCol := t.Column(lat), t.Column(lon)
	var keep []int
	out := 0
	for i := 0; i < t.NumRows(); i++ {
		a, b := latCol.At(i), lonCol.At(i)
		if a.Null || b.Null {
			continue
		}
		keep = append(keep, i)
		if x, ok := a.Number(); ok && (x < -90 || x > 90) {
			out++
			continue
		}
		if y, ok := b.Number(); ok && (y < -180 || y > 180) {
			out++
		}
	}
	sub, err := t.Select(latCol.Name(), lonCol.Name())
	if err != nil {
		return nil, err
	}
	return &CoordinatePair{
		Lat:        latCol.Name(),
		Lon:        lonCol.Name(),
		Points:     sub.Filter(keep),
		Rows:       len(keep),
		Dropped:    t.NumRows() - len(keep),
		OutOfRange: out,
	}, nil
}
