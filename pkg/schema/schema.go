package schema

import (
	"github.com/google/uuid"

	"github.com/ssargent/lagerconv/pkg/codec"
	"github.com/ssargent/lagerconv/pkg/column"
)

// RecordPrefixSize is the identifier (16) plus timestamp (8) preceding every payload
const RecordPrefixSize = 16 + 8

// FieldLayout describes one field of a record type
type FieldLayout struct {
	Name    string
	Offset  int
	Size    int
	Type    codec.DType
	TypeTag string    // tag as written in the schema, kept for unrecognized types
	Owner   uuid.UUID // identifier of the owning record type
	Key     string    // group key of the owning record type
}

// Column returns the accumulator key this field feeds
func (f FieldLayout) Column() column.Key {
	return column.Key{Name: f.Name, Group: f.Key}
}

// Descriptor is one record type declared by a format element
type Descriptor struct {
	ID      uuid.UUID
	RawID   string // uuid attribute as written
	Valid   bool   // false when RawID is not a parseable UUID
	Version string
	Key     string
	Fields  []FieldLayout
}

// PayloadSize returns the sum of the declared field sizes
func (d *Descriptor) PayloadSize() int {
	n := 0
	for _, f := range d.Fields {
		n += f.Size
	}
	return n
}

// RecordSize returns the full on-disk size of one record of this type
func (d *Descriptor) RecordSize() int {
	return RecordPrefixSize + d.PayloadSize()
}

// MetaEntry is one key/value pair from the metadata section
type MetaEntry struct {
	Key   string
	Value string
}

// Schema is the parsed format description
type Schema struct {
	Descriptors []*Descriptor
	Fields      []FieldLayout // every field of every descriptor, in declaration order
	Metadata    []MetaEntry

	index map[uuid.UUID]*Descriptor
}

// Lookup finds the descriptor for a record identifier
func (s *Schema) Lookup(id uuid.UUID) (*Descriptor, bool) {
	d, ok := s.index[id]
	return d, ok
}

// TotalFieldSize returns the sum of all field sizes across every descriptor
func (s *Schema) TotalFieldSize() int {
	n := 0
	for _, f := range s.Fields {
		n += f.Size
	}
	return n
}

// Groups returns the distinct group keys in declaration order
func (s *Schema) Groups() []string {
	seen := make(map[string]struct{}, len(s.Descriptors))
	var groups []string
	for _, d := range s.Descriptors {
		if _, ok := seen[d.Key]; ok {
			continue
		}
		seen[d.Key] = struct{}{}
		groups = append(groups, d.Key)
	}
	return groups
}

// InvalidDescriptors returns descriptors whose identifier could not be parsed.
// Their columns are declared but no record can ever match them.
func (s *Schema) InvalidDescriptors() []*Descriptor {
	var out []*Descriptor
	for _, d := range s.Descriptors {
		if !d.Valid {
			out = append(out, d)
		}
	}
	return out
}

// NewAccumulator returns an accumulator with one empty column declared for
// every (field name, group key) pair in the schema
func (s *Schema) NewAccumulator() *column.Accumulator {
	acc := column.NewAccumulator()
	for _, f := range s.Fields {
		acc.Declare(f.Column())
	}
	return acc
}
