package stream

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/ssargent/lagerconv/pkg/codec"
	"github.com/ssargent/lagerconv/pkg/column"
	"github.com/ssargent/lagerconv/pkg/schema"
)

// Scanner provides sequential access to the records between the header and
// the embedded schema
type Scanner struct {
	reader *bufio.Reader
	schema *schema.Schema
	offset int64
	config ScannerConfig
	stats  Stats
}

// NewScanner creates a scanner reading records from r.
// r must be positioned at config.StartOffset.
func NewScanner(r io.Reader, s *schema.Schema, config ScannerConfig) *Scanner {
	if config.StartOffset == 0 {
		config.StartOffset = HeaderSize
	}
	return &Scanner{
		reader: bufio.NewReader(r),
		schema: s,
		offset: config.StartOffset,
		config: config,
	}
}

// Next reads the next record. It returns io.EOF once the stream is exhausted.
func (s *Scanner) Next() (*Record, error) {
	if s.config.Legacy {
		return s.nextLegacy()
	}

	if s.offset >= s.config.EndOffset {
		return nil, io.EOF
	}

	start := s.offset
	if remaining := s.config.EndOffset - s.offset; remaining < schema.RecordPrefixSize {
		return nil, &TruncatedInputError{What: "record prefix", Offset: start, Need: schema.RecordPrefixSize, Have: remaining}
	}

	id, ts, err := s.readPrefix()
	if err != nil {
		return nil, err
	}

	d, ok := s.schema.Lookup(id)
	if !ok {
		return nil, &codec.DecodeError{Offset: start, Reason: fmt.Sprintf("unknown record identifier %s", id)}
	}

	if remaining := s.config.EndOffset - s.offset; remaining < int64(d.PayloadSize()) {
		return nil, &TruncatedInputError{What: "record payload", Offset: s.offset, Need: int64(d.PayloadSize()), Have: remaining}
	}

	return s.readPayload(start, id, ts, d)
}

// nextLegacy stops once the sum of every declared field size would cross the end
// offset, and returns unknown identifiers without skipping their payload
func (s *Scanner) nextLegacy() (*Record, error) {
	if s.offset+int64(s.schema.TotalFieldSize()) > s.config.EndOffset {
		return nil, io.EOF
	}

	start := s.offset
	id, ts, err := s.readPrefix()
	if err != nil {
		return nil, err
	}

	d, ok := s.schema.Lookup(id)
	if !ok {
		s.stats.Records++
		s.stats.Unmatched++
		return &Record{ID: id, Timestamp: ts, Offset: start}, nil
	}

	return s.readPayload(start, id, ts, d)
}

func (s *Scanner) readPrefix() (uuid.UUID, uint64, error) {
	prefix, err := s.read("record prefix", schema.RecordPrefixSize)
	if err != nil {
		return uuid.Nil, 0, err
	}

	var id uuid.UUID
	copy(id[:], prefix[:16])
	return id, binary.BigEndian.Uint64(prefix[16:24]), nil
}

func (s *Scanner) readPayload(start int64, id uuid.UUID, ts uint64, d *schema.Descriptor) (*Record, error) {
	rec := &Record{
		ID:         id,
		Timestamp:  ts,
		Offset:     start,
		Descriptor: d,
		Values:     make([]codec.Value, 0, len(d.Fields)),
	}

	for _, f := range d.Fields {
		at := s.offset
		buf, err := s.read(f.Name, f.Size)
		if err != nil {
			return nil, err
		}

		v, err := f.Type.Decode(buf)
		if err != nil {
			if decErr, ok := err.(*codec.DecodeError); ok {
				decErr.Field = f.Name
				decErr.Offset = at
				if !f.Type.Valid() {
					decErr.Reason = fmt.Sprintf("unrecognized primitive type %q", f.TypeTag)
				}
			}
			return nil, err
		}
		rec.Values = append(rec.Values, v)
	}

	s.stats.Records++
	s.stats.Values += len(rec.Values)
	return rec, nil
}

// readBound is the absolute offset no read may cross, or 0 when unknown
func (s *Scanner) readBound() int64 {
	if !s.config.Legacy {
		return s.config.EndOffset
	}
	return s.config.Limit
}

func (s *Scanner) read(what string, size int) ([]byte, error) {
	if bound := s.readBound(); bound > 0 && int64(size) > bound-s.offset {
		return nil, &TruncatedInputError{What: what, Offset: s.offset, Need: int64(size), Have: max(bound-s.offset, 0)}
	}

	buf := make([]byte, size)
	n, err := io.ReadFull(s.reader, buf)
	s.offset += int64(n)
	s.stats.Bytes += int64(n)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &TruncatedInputError{What: what, Offset: s.offset - int64(n), Need: int64(size), Have: int64(n)}
		}
		return nil, err
	}
	return buf, nil
}

// ScanInto reads every remaining record and appends each decoded value to the
// column for its (field name, group key)
func (s *Scanner) ScanInto(acc *column.Accumulator) (Stats, error) {
	it := s.Iterator()
	defer it.Close()

	for it.Next() {
		rec := it.Record()
		if !rec.Matched() {
			continue
		}
		for i, f := range rec.Descriptor.Fields {
			if err := acc.Append(f.Column(), rec.Values[i]); err != nil {
				return s.stats, err
			}
		}
	}

	return s.stats, it.Err()
}

// Offset returns the absolute offset of the next unread byte
func (s *Scanner) Offset() int64 {
	return s.offset
}

// Stats returns counters for the records read so far
func (s *Scanner) Stats() Stats {
	return s.stats
}

// Iterator returns a streaming iterator for records
func (s *Scanner) Iterator() RecordIterator {
	return &recordIterator{scanner: s}
}

// recordIterator implements RecordIterator for streaming access
type recordIterator struct {
	scanner *Scanner
	record  *Record
	err     error
}

func (it *recordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.record, it.err = it.scanner.Next()
	return it.err == nil
}

func (it *recordIterator) Record() *Record {
	return it.record
}

// Err returns the error that stopped iteration, or nil at a clean end of stream
func (it *recordIterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}

func (it *recordIterator) Close() error {
	// the scanner is owned by the caller
	return nil
}
