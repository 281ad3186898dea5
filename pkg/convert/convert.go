// Package convert runs the LAGER conversion pipeline: header, schema, record
// scan, then column emission into a sink.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/ssargent/lagerconv/pkg/column"
	"github.com/ssargent/lagerconv/pkg/schema"
	"github.com/ssargent/lagerconv/pkg/stream"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// minDecoderMemory keeps small limits from rejecting ordinary zstd window sizes
const minDecoderMemory = 8 << 20

// Decoded is a fully scanned LAGER file
type Decoded struct {
	Header  stream.Header
	Schema  *schema.Schema
	Columns *column.Accumulator
	Stats   stream.Stats
}

// ErrInputTooLarge is returned when decompressed input exceeds its limit
var ErrInputTooLarge = errors.New("decompressed input too large")

// ReadInput reads a LAGER file into memory, transparently decompressing it
// when it is zstd-compressed
func ReadInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return Decompress(data, 0)
}

// Decompress returns data unchanged unless it starts with the zstd magic
// number. A positive limit caps the decompressed size; exceeding it returns
// an error wrapping ErrInputTooLarge.
func Decompress(data []byte, limit int64) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}

	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if limit > 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(uint64(max(limit, minDecoderMemory))))
	}
	dec, err := zstd.NewReader(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open zstd stream: %w", err)
	}
	defer dec.Close()

	var r io.Reader = dec
	if limit > 0 {
		r = io.LimitReader(dec, limit+1)
	}
	out, err := io.ReadAll(r)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return nil, fmt.Errorf("%w: %v", ErrInputTooLarge, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decompress input: %w", err)
	}
	if limit > 0 && int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrInputTooLarge, limit)
	}
	return out, nil
}

// ParseSchema reads the header and the embedded schema without scanning records
func ParseSchema(data []byte) (stream.Header, *schema.Schema, error) {
	h, err := stream.ParseHeader(data)
	if err != nil {
		return stream.Header{}, nil, err
	}
	if h.DataOffset < stream.HeaderSize || h.DataOffset > uint64(len(data)) {
		return h, nil, &stream.TruncatedInputError{
			What:   "schema",
			Offset: int64(stream.HeaderSize),
			Need:   int64(h.DataOffset),
			Have:   int64(len(data)),
		}
	}

	s, err := schema.Parse(data[h.DataOffset:])
	if err != nil {
		return h, nil, err
	}
	for _, m := range s.Metadata {
		if reservedAttribute(m.Key) {
			return h, nil, &schema.SchemaParseError{Element: "meta", Attr: "key", Err: fmt.Errorf("%q is reserved", m.Key)}
		}
	}
	return h, s, nil
}

// Decode parses the schema and scans every record in data
func Decode(data []byte, legacy bool) (*Decoded, error) {
	h, s, err := ParseSchema(data)
	if err != nil {
		return nil, err
	}

	acc := s.NewAccumulator()
	// the reader runs to EOF, not to dataOffset; legacy mode can read past it
	scanner := stream.NewScanner(bytes.NewReader(data[stream.HeaderSize:]), s, stream.ScannerConfig{
		StartOffset: stream.HeaderSize,
		EndOffset:   int64(h.DataOffset),
		Limit:       int64(len(data)),
		Legacy:      legacy,
	})

	stats, err := scanner.ScanInto(acc)
	if err != nil {
		return nil, err
	}

	return &Decoded{Header: h, Schema: s, Columns: acc, Stats: stats}, nil
}

// OutputPath names the converted file: the input's base name cut at its first
// period, plus "_converted.<ext>", in dir (or next to the input when dir is empty)
func OutputPath(input, dir, ext string) string {
	base := filepath.Base(input)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base+"_converted."+ext)
}

func logDecoded(logger *zap.Logger, d *Decoded) {
	logger.Info("read header",
		zap.Uint16("version", d.Header.Version),
		zap.Uint64("data_offset", d.Header.DataOffset))
	logger.Info("parsed schema",
		zap.Int("formats", len(d.Schema.Descriptors)),
		zap.Int("fields", len(d.Schema.Fields)),
		zap.Int("columns", d.Columns.Len()))
	for _, desc := range d.Schema.InvalidDescriptors() {
		logger.Warn("format identifier is not a UUID; its records cannot match",
			zap.String("uuid", desc.RawID), zap.String("key", desc.Key))
	}
	logger.Info("scanned records",
		zap.Int("records", d.Stats.Records),
		zap.Int("unmatched", d.Stats.Unmatched),
		zap.Int("values", d.Stats.Values))
}
