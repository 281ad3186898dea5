// Package stream reads the LAGER file header and walks the binary record stream.
package stream

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ssargent/lagerconv/pkg/codec"
	"github.com/ssargent/lagerconv/pkg/schema"
)

// HeaderSize is the fixed size of the file header: version(2) + dataOffset(8)
const HeaderSize = 2 + 8

// Header is the fixed-size preamble of a LAGER file
type Header struct {
	Version    uint16 // format version, informational only
	DataOffset uint64 // absolute offset of the embedded schema; end of the record stream
}

// Record is one decoded record from the stream
type Record struct {
	ID         uuid.UUID          // record-type identifier
	Timestamp  uint64             // consumed but not interpreted
	Offset     int64              // absolute offset of the record's first byte
	Descriptor *schema.Descriptor // nil when the identifier matched nothing (legacy mode only)
	Values     []codec.Value      // one per Descriptor.Fields entry
}

// Matched reports whether the record's identifier was found in the schema
func (r *Record) Matched() bool {
	return r.Descriptor != nil
}

// ScannerConfig holds configuration for the record scanner
type ScannerConfig struct {
	StartOffset int64 // absolute offset the reader is positioned at, normally HeaderSize
	EndOffset   int64 // absolute offset where the record stream ends (Header.DataOffset)

	// Limit is the absolute offset where the underlying reader ends, when
	// known. Legacy scans may read past EndOffset but never past Limit.
	Limit int64

	// Legacy selects the compatibility scan: it stops once fewer
	// bytes remain than the sum of every field size in the schema, and an
	// unknown identifier is consumed without skipping its payload.
	Legacy bool
}

// Stats summarizes a scan
type Stats struct {
	Records   int   `json:"records"`   // records read, matched or not
	Unmatched int   `json:"unmatched"` // records whose identifier was not in the schema (legacy mode)
	Values    int   `json:"values"`    // scalar values decoded
	Bytes     int64 `json:"bytes"`     // bytes consumed from the stream
}

// RecordIterator provides streaming access to records
type RecordIterator interface {
	Next() bool
	Record() *Record
	Err() error
	Close() error
}

// TruncatedInputError reports a fixed-size read that ran out of bytes
type TruncatedInputError struct {
	What   string // what was being read
	Offset int64  // absolute offset of the read
	Need   int64
	Have   int64
}

func (e *TruncatedInputError) Error() string {
	return fmt.Sprintf("truncated input reading %s at offset %d: need %d bytes, have %d", e.What, e.Offset, e.Need, e.Have)
}
