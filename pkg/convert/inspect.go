package convert

import (
	"github.com/ssargent/lagerconv/pkg/schema"
	"github.com/ssargent/lagerconv/pkg/stream"
)

// Summary describes a LAGER file's header and schema
type Summary struct {
	Version    uint16          `json:"version" yaml:"version"`
	DataOffset uint64          `json:"data_offset" yaml:"data_offset"`
	Formats    []FormatSummary `json:"formats" yaml:"formats"`
	Metadata   []MetaSummary   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// FormatSummary describes one record type
type FormatSummary struct {
	UUID       string         `json:"uuid" yaml:"uuid"`
	Valid      bool           `json:"valid" yaml:"valid"`
	Version    string         `json:"version" yaml:"version"`
	Key        string         `json:"key" yaml:"key"`
	RecordSize int            `json:"record_size" yaml:"record_size"`
	Fields     []FieldSummary `json:"fields" yaml:"fields"`
}

// FieldSummary describes one field of a record type
type FieldSummary struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Offset int    `json:"offset" yaml:"offset"`
	Size   int    `json:"size" yaml:"size"`
}

// MetaSummary is one schema metadata entry
type MetaSummary struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Inspect parses the header and schema of data without scanning records
func Inspect(data []byte) (*Summary, error) {
	h, s, err := ParseSchema(data)
	if err != nil {
		return nil, err
	}
	return Summarize(h, s), nil
}

// Summarize builds a Summary from an already parsed header and schema
func Summarize(h stream.Header, s *schema.Schema) *Summary {
	out := &Summary{Version: h.Version, DataOffset: h.DataOffset, Formats: []FormatSummary{}}
	for _, d := range s.Descriptors {
		f := FormatSummary{
			UUID:       d.RawID,
			Valid:      d.Valid,
			Version:    d.Version,
			Key:        d.Key,
			RecordSize: d.RecordSize(),
			Fields:     make([]FieldSummary, 0, len(d.Fields)),
		}
		for _, fl := range d.Fields {
			f.Fields = append(f.Fields, FieldSummary{Name: fl.Name, Type: fl.TypeTag, Offset: fl.Offset, Size: fl.Size})
		}
		out.Formats = append(out.Formats, f)
	}
	for _, m := range s.Metadata {
		out.Metadata = append(out.Metadata, MetaSummary{Key: m.Key, Value: m.Value})
	}
	return out
}
