package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "text"
	}
}

// Numeric reports whether values of this kind take part in numeric statistics.
func (k Kind) Numeric() bool { return k == KindInt || k == KindFloat }

// MarshalText lets kinds appear by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Value is a single cell. Only the field matching Kind is meaningful, and none
// of them are when Null is set.
type Value struct {
	Kind  Kind
	Null  bool
	Int   int64
	Float float64
	Bool  bool
	Text  string
}

func NullValue(k Kind) Value { return Value{Kind: k, Null: true} }
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// Number returns the numeric payload of int and float cells.
func (v Value) Number() (float64, bool) {
	if v.Null {
		return 0, false
	}
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	}
	return 0, false
}

// Equal is exact equality; two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.Null || o.Null {
		return v.Null == o.Null
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return v.Float == o.Float
	case KindBool:
		return v.Bool == o.Bool
	default:
		return v.Text == o.Text
	}
}

// String is the canonical text form written to CSV. Nulls encode as "".
func (v Value) String() string {
	if v.Null {
		return ""
	}
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return formatFloat(v.Float)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}

// formatFloat keeps a decimal point on integral values so the column reloads as float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") && !math.IsInf(f, 0) && !math.IsNaN(f) {
		s += ".0"
	}
	return s
}

// Column is an immutable, named, single-kind sequence of values.
type Column struct {
	name   string
	kind   Kind
	values []Value
	nulls  int
}

// NewColumn copies values into a new column. Every non-null value must have the column's kind.
func NewColumn(name string, kind Kind, values []Value) (*Column, error) {
	c := &Column{name: name, kind: kind, values: make([]Value, len(values))}
	for i, v := range values {
		if v.Null {
			v = NullValue(kind)
			c.nulls++
		} else if v.Kind != kind {
			return nil, fmt.Errorf("column %q: row %d has kind %s, want %s", name, i, v.Kind, kind)
		}
		c.values[i] = v
	}
	return c, nil
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind { return c.kind }
func (c *Column) Len() int { return len(c.values) }
func (c *Column) At(i int) Value { return c.values[i] }
func (c *Column) NullCount() int { return c.nulls }

// Values returns a copy of the column's cells.
func (c *Column) Values() []Value {
	out := make([]Value, len(c.values))
	copy(out, c.values)
	return out
}

// Numbers returns the non-null numeric values with the rows they came from.
// It returns nothing for non-numeric columns.
func (c *Column) Numbers() (vals []float64, rows []int) {
	if !c.kind.Numeric() {
		return nil, nil
	}
	vals = make([]float64, 0, len(c.values)-c.nulls)
	rows = make([]int, 0, len(c.values)-c.nulls)
	for i, v := range c.values {
		if x, ok := v.Number(); ok {
			vals = append(vals, x)
			rows = append(rows, i)
		}
	}
	return vals, rows
}

// rename returns a column sharing this column's cells under a new name.
func (c *Column) rename(name string) *Column {
	return &Column{name: name, kind: c.kind, values: c.values, nulls: c.nulls}
}

// Table is an ordered set of equally long columns. A Table is never modified
// after construction; every transformation returns a new Table, sharing
// untouched columns with its source.
type Table struct {
	cols  []*Column
	rows  int
	index map[string]int
}

// New builds a table from columns of identical length and unique names.
func New(cols ...*Column) (*Table, error) {
	t := &Table{cols: make([]*Column, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.name, c.Len(), t.rows)
		}
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.name)
		}
		t.index[c.name] = i
		t.cols[i] = c
	}
	return t, nil
}

func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumCols() int { return len(t.cols) }
func (t *Table) Column(i int) *Column { return t.cols[i] }

// Names returns column names in order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.name
	}
	return out
}

// Lookup finds a column by exact name.
func (t *Table) Lookup(name string) (*Column, int, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, -1, false
	}
	return t.cols[i], i, true
}

// Row returns a copy of row i across all columns.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.values[i]
	}
	return out
}

// Strings returns every row in canonical text form, nulls as "".
func (t *Table) Strings() [][]string {
	out := make([][]string, t.rows)
	for i := range out {
		out[i] = make([]string, len(t.cols))
		for j, c := range t.cols {
			out[i][j] = c.values[i].String()
		}
	}
	return out
}

// NumericColumns returns indices of int and float columns in table order.
func (t *Table) NumericColumns() []int {
	var out []int
	for i, c := range t.cols {
		if c.kind.Numeric() {
			out = append(out, i)
		}
	}
	return out
}

// NullCount is the number of null cells across the whole table.
func (t *Table) NullCount() int {
	n := 0
	for _, c := range t.cols {
		n += c.nulls
	}
	return n
}

// Filter returns a table holding the given rows, in the given order.
func (t *Table) Filter(rows []int) *Table {
	out := &Table{cols: make([]*Column, len(t.cols)), rows: len(rows), index: t.index}
	for j, c := range t.cols {
		nc := &Column{name: c.name, kind: c.kind, values: make([]Value, len(rows))}
		for k, r := range rows {
			v := c.values[r]
			if v.Null {
				nc.nulls++
			}
			nc.values[k] = v
		}
		out.cols[j] = nc
	}
	return out
}

// Select returns a table with only the named columns, in the order given.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, _, ok := t.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// ReplaceColumn returns a table with column i swapped for c. The new column
// keeps the name of the one it replaces.
func (t *Table) ReplaceColumn(i int, c *Column) (*Table, error) {
	if i < 0 || i >= len(t.cols) {
		return nil, fmt.Errorf("column index %d out of range", i)
	}
	if c.Len() != t.rows {
		return nil, fmt.Errorf("replacement for %q has %d rows, want %d", t.cols[i].name, c.Len(), t.rows)
	}
	cols := make([]*Column, len(t.cols))
	copy(cols, t.cols)
	cols[i] = c.rename(t.cols[i].name)
	return &Table{cols: cols, rows: t.rows, index: t.index}, nil
}

// RowKey encodes row i exactly, so two rows share a key only when every cell is
// equal. Nulls compare equal to each other.
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for _, c := range t.cols {
		v := c.values[i]
		if v.Null {
			b.WriteString("\x00n")
			continue
		}
		var s string
		switch v.Kind {
		case KindInt:
			b.WriteByte('i')
			s = strconv.FormatInt(v.Int, 10)
		case KindFloat:
			b.WriteByte('f')
			f := v.Float
			if f == 0 {
				f = 0 // fold -0 into 0
			}
			s = strconv.FormatFloat(f, 'g', -1, 64)
		case KindBool:
			b.WriteByte('b')
			s = strconv.FormatBool(v.Bool)
		default:
			b.WriteByte('s')
			s = v.Text
		}
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteByte(':')
		b.WriteString(s)
	}
	return b.String()
}

// Equal reports whether two tables have the same names, kinds and cells.
func (t *Table) Equal(o *Table) bool {
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for j, c := range t.cols {
		oc := o.cols[j]
		if c.name != oc.name || c.kind != oc.kind {
			return false
		}
		for i := range c.values {
			if !c.values[i].Equal(oc.values[i]) {
				return false
			}
		}
	}
	return true
}
