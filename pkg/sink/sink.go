// Package sink writes converted columns into a hierarchical group/dataset container.
package sink

import (
	"fmt"
	"sort"
)

// Sink is a hierarchical container of named groups, each holding named
// float32 datasets, plus string attributes on the root
type Sink interface {
	CreateGroup(name string) error
	WriteDataset(group, name string, data []float32) error
	SetAttribute(key, value string) error
	Close() error
}

// Factory opens a new sink at path, replacing anything already there
type Factory func(path string) (Sink, error)

// Backend describes a registered sink implementation
type Backend struct {
	Name      string
	Extension string // file extension of the output, without the dot
	Open      Factory
}

var backends = map[string]Backend{
	"bolt":    {Name: "bolt", Extension: "bolt", Open: OpenBolt},
	"pebble":  {Name: "pebble", Extension: "pebble", Open: OpenPebble},
	"parquet": {Name: "parquet", Extension: "parquet", Open: OpenParquet},
}

// DefaultBackend is used when no format is configured
const DefaultBackend = "bolt"

// Lookup returns the backend registered under name
func Lookup(name string) (Backend, error) {
	b, ok := backends[name]
	if !ok {
		return Backend{}, fmt.Errorf("unknown output format %q (available: %v)", name, Names())
	}
	return b, nil
}

// Names lists the registered backends
func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SinkWriteError reports a failure writing to the output container.
// Earlier writes are not rolled back.
type SinkWriteError struct {
	Op   string
	Path string // group or group/dataset, when known
	Err  error
}

func (e *SinkWriteError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("sink %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("sink %s: %v", e.Op, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}

func writeErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &SinkWriteError{Op: op, Path: path, Err: err}
}
