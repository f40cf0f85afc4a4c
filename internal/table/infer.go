package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var nullTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

// IsNullToken reports whether a raw cell denotes a missing value. The same
// sentinels apply to every column regardless of its kind.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

func parseInt(s string) (int64, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return i, err == nil
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	t := strings.TrimSpace(s)
	switch {
	case strings.EqualFold(t, "true"):
		return true, true
	case strings.EqualFold(t, "false"):
		return false, true
	}
	return false, false
}

// InferKind picks the first kind in the order int, float, bool that every
// non-null cell parses as, falling back to text. A column with no non-null
// cells is text.
func InferKind(cells []string) Kind {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, s := range cells {
		if IsNullToken(s) {
			continue
		}
		seen = true
		if isInt {
			if _, ok := parseInt(s); !ok {
				isInt = false
			}
		}
		if isFloat && !isInt {
			if _, ok := parseFloat(s); !ok {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(s); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			break
		}
	}
	switch {
	case !seen:
		return KindText
	case isInt:
		return KindInt
	case isFloat:
		return KindFloat
	case isBool:
		return KindBool
	}
	return KindText
}

// ParseValue converts a raw cell into a value of kind k. Text keeps the raw
// string untouched.
func ParseValue(k Kind, s string) (Value, error) {
	if IsNullToken(s) {
		return NullValue(k), nil
	}
	switch k {
	case KindInt:
		if i, ok := parseInt(s); ok {
			return IntValue(i), nil
		}
	case KindFloat:
		if f, ok := parseFloat(s); ok {
			return FloatValue(f), nil
		}
	case KindBool:
		if b, ok := parseBool(s); ok {
			return BoolValue(b), nil
		}
	default:
		return TextValue(s), nil
	}
	return Value{}, fmt.Errorf("cannot parse %q as %s", s, k)
}

// FromRecords builds a typed table from a header and raw string rows. Short
// rows are padded with nulls; rows longer than the header are rejected.
// Blank header names become "Unnamed: <i>" and repeats get ".1", ".2", ...
func FromRecords(header []string, records [][]string) (*Table, error) {
	names := normalizeHeader(header)
	ncol := len(names)
	cells := make([][]string, ncol)
	for j := range cells {
		cells[j] = make([]string, len(records))
	}
	for i, rec := range records {
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(rec), ncol)
		}
		for j, s := range rec {
			cells[j][i] = s
		}
	}
	cols := make([]*Column, ncol)
	for j, name := range names {
		kind := InferKind(cells[j])
		vals := make([]Value, len(records))
		for i, s := range cells[j] {
			v, err := ParseValue(kind, s)
			if err != nil {
				return nil, fmt.Errorf("column %q row %d: %w", name, i+1, err)
			}
			vals[i] = v
		}
		c, err := NewColumn(name, kind, vals)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	return New(cols...)
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, ok := seen[name]; ok {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}
