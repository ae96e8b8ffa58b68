package types

import "strings"

// Row is an ordered mapping of column name to value
type Row struct {
	names  []string
	values map[string]Value
}

// NewRow creates an empty row
func NewRow() *Row {
	return &Row{values: map[string]Value{}}
}

// Set assigns the value of the column, preserving first-set column order
func (r *Row) Set(name string, v Value) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}

	r.values[name] = v
}

// Get gets the value of the column. When no exact key exists the lookup
// falls back to the first case-insensitive match.
func (r *Row) Get(name string) (Value, bool) {
	if v, ok := r.values[name]; ok {
		return v, true
	}

	for _, n := range r.names {
		if strings.EqualFold(n, name) {
			return r.values[n], true
		}
	}

	return nil, false
}

// Columns returns the column names in first-set order
func (r *Row) Columns() []string {
	return r.names
}

// Len returns the number of columns in the row
func (r *Row) Len() int {
	return len(r.names)
}

// Clone returns a shallow copy of the row
func (r *Row) Clone() *Row {
	clone := NewRow()
	for _, n := range r.names {
		clone.Set(n, r.values[n])
	}

	return clone
}

// Column describes the logical name and inferred kind of a result column
type Column struct {
	Name string
	Kind Kind
}

// ColumnsOf infers the result shape from a row
func ColumnsOf(r *Row) []Column {
	cols := make([]Column, 0, r.Len())
	for _, n := range r.Columns() {
		v, _ := r.Get(n)
		kind := KindNull

		if v != nil {
			kind = v.Kind()
		}

		cols = append(cols, Column{Name: n, Kind: kind})
	}

	return cols
}
