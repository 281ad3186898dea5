// Package column regroups decoded record values into per-field columns.
package column

import (
	"fmt"

	"github.com/ssargent/lagerconv/pkg/codec"
)

// Key identifies one output column: a field name within a group
type Key struct {
	Name  string
	Group string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Group, k.Name)
}

// Accumulator maps each declared Key to its values in arrival order.
// Keys can only be added through Declare, so every column present was
// declared by the schema even when it never receives a value.
type Accumulator struct {
	order   []Key
	columns map[Key][]codec.Value
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{columns: make(map[Key][]codec.Value)}
}

// Declare adds an empty column for key. Declaring an existing key is a no-op,
// which is how two record types sharing a (name, group) pair merge into one column.
func (a *Accumulator) Declare(key Key) {
	if _, ok := a.columns[key]; ok {
		return
	}
	a.columns[key] = []codec.Value{}
	a.order = append(a.order, key)
}

// Append adds v to the end of the column for key
func (a *Accumulator) Append(key Key, v codec.Value) error {
	col, ok := a.columns[key]
	if !ok {
		return fmt.Errorf("column %s was not declared", key)
	}
	a.columns[key] = append(col, v)
	return nil
}

// Has reports whether key was declared
func (a *Accumulator) Has(key Key) bool {
	_, ok := a.columns[key]
	return ok
}

// Values returns the column for key. The slice must not be modified.
func (a *Accumulator) Values(key Key) []codec.Value {
	return a.columns[key]
}

// Float32s returns the column for key normalized to float32
func (a *Accumulator) Float32s(key Key) []float32 {
	col := a.columns[key]
	out := make([]float32, len(col))
	for i, v := range col {
		out[i] = v.Float32()
	}
	return out
}

// Keys returns every declared key in declaration order
func (a *Accumulator) Keys() []Key {
	keys := make([]Key, len(a.order))
	copy(keys, a.order)
	return keys
}

// Len returns the number of declared columns
func (a *Accumulator) Len() int {
	return len(a.order)
}

// Total returns the number of values across all columns
func (a *Accumulator) Total() int {
	n := 0
	for _, col := range a.columns {
		n += len(col)
	}
	return n
}
