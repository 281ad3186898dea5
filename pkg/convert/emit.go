package convert

import (
	"sort"
	"strconv"

	"github.com/ssargent/lagerconv/pkg/sink"
)

// Root attribute names written by Emit
const (
	AttrVersion      = "lager_version"
	AttrConversionID = "conversion_id"
	AttrSource       = "source"
)

// reservedAttribute reports whether key is written by the converter or a sink
// itself and so cannot come from schema metadata
func reservedAttribute(key string) bool {
	switch key {
	case AttrVersion, AttrConversionID, AttrSource, sink.LayoutMetadataKey:
		return true
	}
	return false
}

// Emit writes the decoded columns into s: one group per distinct group key,
// then one float32 dataset per (field name, group key) under its group.
// Every value is narrowed to float32 regardless of its declared type.
// Attributes are written in a fixed order: version, schema metadata in
// document order, then attrs sorted by key.
// Nothing already written is rolled back on failure.
func Emit(d *Decoded, s sink.Sink, attrs map[string]string) error {
	for _, group := range d.Schema.Groups() {
		if err := s.CreateGroup(group); err != nil {
			return asWriteErr("create group", group, err)
		}
	}

	for _, key := range d.Columns.Keys() {
		if err := s.WriteDataset(key.Group, key.Name, d.Columns.Float32s(key)); err != nil {
			return asWriteErr("write dataset", key.String(), err)
		}
	}

	if err := s.SetAttribute(AttrVersion, strconv.Itoa(int(d.Header.Version))); err != nil {
		return asWriteErr("set attribute", AttrVersion, err)
	}
	for _, m := range d.Schema.Metadata {
		if err := s.SetAttribute(m.Key, m.Value); err != nil {
			return asWriteErr("set attribute", m.Key, err)
		}
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.SetAttribute(k, attrs[k]); err != nil {
			return asWriteErr("set attribute", k, err)
		}
	}
	return nil
}

// asWriteErr makes sure every failure leaving Emit is a *sink.SinkWriteError
func asWriteErr(op, path string, err error) error {
	if _, ok := err.(*sink.SinkWriteError); ok {
		return err
	}
	return &sink.SinkWriteError{Op: op, Path: path, Err: err}
}
