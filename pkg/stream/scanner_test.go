package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/lagerconv/pkg/codec"
	"github.com/ssargent/lagerconv/pkg/column"
	"github.com/ssargent/lagerconv/pkg/schema"
	"github.com/ssargent/lagerconv/pkg/stream/lagertest"
)

const (
	imuID   = "5f3e2a10-8c1d-4b7e-9a55-0123456789ab"
	powerID = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
	otherID = "01234567-89ab-cdef-0123-456789abcdef"
)

var (
	imuFormat = lagertest.Format{UUID: imuID, Key: "imu", Fields: []lagertest.Field{
		{Name: "accel_x", Type: "float32"},
		{Name: "counter", Type: "uint16_t"},
	}}
	powerFormat = lagertest.Format{UUID: powerID, Key: "power", Fields: []lagertest.Field{
		{Name: "volts", Type: "float64"},
	}}
)

// open splits a rendered file the way the converter does and returns a scanner
// over the record stream
func open(t *testing.T, data []byte, legacy bool) (*Scanner, *schema.Schema) {
	t.Helper()

	r := bytes.NewReader(data)
	h, err := ReadHeader(r)
	require.NoError(t, err)

	s, err := schema.Parse(data[h.DataOffset:])
	require.NoError(t, err)

	// the reader is not cut at the end offset so legacy mode can read past it
	body := bytes.NewReader(data[HeaderSize:])
	return NewScanner(body, s, ScannerConfig{
		StartOffset: HeaderSize,
		EndOffset:   int64(h.DataOffset),
		Legacy:      legacy,
	}), s
}

func TestScanner_SingleRecord(t *testing.T) {
	f := lagertest.New(lagertest.Format{UUID: "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", Key: "grpA", Fields: []lagertest.Field{
		{Name: "temp", Type: "float32"},
	}})
	f.Record("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", 42, codec.Float32Value(10.0))

	for _, legacy := range []bool{false, true} {
		sc, s := open(t, f.Bytes(), legacy)

		rec, err := sc.Next()
		require.NoError(t, err)
		assert.True(t, rec.Matched())
		assert.Equal(t, uint64(42), rec.Timestamp)
		assert.Equal(t, int64(HeaderSize), rec.Offset)
		require.Len(t, rec.Values, 1)
		assert.Equal(t, 10.0, rec.Values[0].Float64())
		assert.Equal(t, s.Descriptors[0], rec.Descriptor)

		_, err = sc.Next()
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, int64(HeaderSize+28), sc.Offset())
	}
}

func TestScanner_ScanInto_Interleaved(t *testing.T) {
	f := lagertest.New(imuFormat, powerFormat)
	f.Record(imuID, 1, codec.Float32Value(0.5), codec.UintValue(codec.Uint16, 1))
	f.Record(powerID, 2, codec.Float64Value(12.25))
	f.Record(imuID, 3, codec.Float32Value(-0.5), codec.UintValue(codec.Uint16, 2))
	f.Record(powerID, 4, codec.Float64Value(11.75))
	f.Record(powerID, 5, codec.Float64Value(11.5))

	sc, s := open(t, f.Bytes(), false)
	acc := s.NewAccumulator()

	stats, err := sc.ScanInto(acc)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 7, stats.Values)
	assert.Equal(t, 0, stats.Unmatched)
	assert.Equal(t, int64(f.BodyLen()), stats.Bytes)

	assert.Equal(t, []float32{0.5, -0.5}, acc.Float32s(column.Key{Name: "accel_x", Group: "imu"}))
	assert.Equal(t, []float32{1, 2}, acc.Float32s(column.Key{Name: "counter", Group: "imu"}))
	assert.Equal(t, []float32{12.25, 11.75, 11.5}, acc.Float32s(column.Key{Name: "volts", Group: "power"}))
}

func TestScanner_SharedColumnInterleaves(t *testing.T) {
	a := lagertest.Format{UUID: imuID, Key: "g", Fields: []lagertest.Field{{Name: "x", Type: "float32"}}}
	b := lagertest.Format{UUID: powerID, Key: "g", Fields: []lagertest.Field{{Name: "x", Type: "int16_t"}}}

	f := lagertest.New(a, b)
	f.Record(imuID, 0, codec.Float32Value(1.5))
	f.Record(powerID, 0, codec.IntValue(codec.Int16, -3))
	f.Record(imuID, 0, codec.Float32Value(2.5))

	sc, s := open(t, f.Bytes(), false)
	acc := s.NewAccumulator()
	_, err := sc.ScanInto(acc)
	require.NoError(t, err)

	assert.Equal(t, 1, acc.Len())
	assert.Equal(t, []float32{1.5, -3, 2.5}, acc.Float32s(column.Key{Name: "x", Group: "g"}))
}

func TestScanner_NoRecords(t *testing.T) {
	f := lagertest.New(imuFormat, powerFormat)
	sc, s := open(t, f.Bytes(), false)
	acc := s.NewAccumulator()

	stats, err := sc.ScanInto(acc)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Records)
	assert.Equal(t, 3, acc.Len())
	for _, k := range acc.Keys() {
		assert.Empty(t, acc.Values(k))
	}
}

func TestScanner_UnknownIdentifier(t *testing.T) {
	f := lagertest.New(imuFormat)
	f.Record(imuID, 0, codec.Float32Value(1), codec.UintValue(codec.Uint16, 1))
	f.Record(otherID, 0, codec.Float32Value(9), codec.UintValue(codec.Uint16, 9))

	t.Run("strict fails fast", func(t *testing.T) {
		sc, s := open(t, f.Bytes(), false)
		acc := s.NewAccumulator()
		_, err := sc.ScanInto(acc)

		var decErr *codec.DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Contains(t, decErr.Reason, "unknown record identifier")
		assert.Equal(t, int64(HeaderSize+30), decErr.Offset)
	})

	t.Run("legacy leaves accumulator untouched", func(t *testing.T) {
		sc, s := open(t, f.Bytes(), true)
		acc := s.NewAccumulator()
		stats, err := sc.ScanInto(acc)
		require.NoError(t, err)

		// the unknown payload is not skipped, so its bytes and the start of the
		// schema are read as one more unmatched prefix before the bound is hit
		assert.Equal(t, 2, stats.Unmatched)
		assert.Equal(t, 3, stats.Records)
		assert.Equal(t, []float32{1}, acc.Float32s(column.Key{Name: "accel_x", Group: "imu"}))
		assert.Equal(t, []float32{1}, acc.Float32s(column.Key{Name: "counter", Group: "imu"}))
	})
}

func TestScanner_LegacyStopsOnSchemaSize(t *testing.T) {
	// a large format that is declared but never logged inflates the legacy
	// stopping bound past the end of the short tick records
	tick := lagertest.Format{UUID: imuID, Key: "tick", Fields: []lagertest.Field{{Name: "n", Type: "uint8_t"}}}
	bulk := lagertest.Format{UUID: powerID, Key: "bulk", Fields: []lagertest.Field{
		{Name: "a", Type: "float64"}, {Name: "b", Type: "float64"}, {Name: "c", Type: "float64"}, {Name: "d", Type: "float64"},
		{Name: "e", Type: "float64"}, {Name: "f", Type: "float64"}, {Name: "g", Type: "float64"}, {Name: "h", Type: "float64"},
	}}

	f := lagertest.New(tick, bulk)
	f.Record(imuID, 0, codec.UintValue(codec.Uint8, 1))
	f.Record(imuID, 0, codec.UintValue(codec.Uint8, 2))
	key := column.Key{Name: "n", Group: "tick"}

	sc, s := open(t, f.Bytes(), true)
	acc := s.NewAccumulator()
	_, err := sc.ScanInto(acc)
	require.NoError(t, err)
	// 10 + 65 > 60: nothing is read
	assert.Empty(t, acc.Values(key))

	sc, s = open(t, f.Bytes(), false)
	acc = s.NewAccumulator()
	stats, err := sc.ScanInto(acc)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, []float32{1, 2}, acc.Float32s(key))
	assert.Equal(t, int64(HeaderSize+50), sc.Offset())
}

func TestScanner_Truncated(t *testing.T) {
	t.Run("partial prefix", func(t *testing.T) {
		f := lagertest.New(imuFormat)
		f.Record(imuID, 0, codec.Float32Value(1), codec.UintValue(codec.Uint16, 1))
		f.Raw(make([]byte, 10))

		sc, s := open(t, f.Bytes(), false)
		_, err := sc.ScanInto(s.NewAccumulator())
		var truncErr *TruncatedInputError
		require.True(t, errors.As(err, &truncErr))
		assert.Equal(t, "record prefix", truncErr.What)
		assert.Equal(t, int64(10), truncErr.Have)
	})

	t.Run("partial payload", func(t *testing.T) {
		f := lagertest.New(imuFormat)
		f.Record(imuID, 0, codec.Float32Value(1))

		sc, s := open(t, f.Bytes(), false)
		_, err := sc.ScanInto(s.NewAccumulator())
		var truncErr *TruncatedInputError
		require.True(t, errors.As(err, &truncErr))
		assert.Equal(t, "record payload", truncErr.What)
	})

	t.Run("source shorter than end offset", func(t *testing.T) {
		f := lagertest.New(imuFormat)
		f.Record(imuID, 0, codec.Float32Value(1), codec.UintValue(codec.Uint16, 1))
		data := f.Bytes()
		s, err := schema.Parse(f.Schema())
		require.NoError(t, err)

		sc := NewScanner(bytes.NewReader(data[HeaderSize:HeaderSize+20]), s, ScannerConfig{EndOffset: HeaderSize + 30})
		_, err = sc.Next()
		var truncErr *TruncatedInputError
		require.True(t, errors.As(err, &truncErr))
		assert.Equal(t, int64(20), truncErr.Have)
	})
}

func TestScanner_OversizedFields(t *testing.T) {
	huge := lagertest.Format{UUID: imuID, Key: "g", Fields: []lagertest.Field{
		{Name: "blob", Type: "float32", Size: schema.MaxFieldSize},
	}}

	t.Run("strict", func(t *testing.T) {
		f := lagertest.New(huge)
		f.Record(imuID, 0)

		sc, s := open(t, f.Bytes(), false)
		_, err := sc.ScanInto(s.NewAccumulator())
		var truncErr *TruncatedInputError
		require.True(t, errors.As(err, &truncErr))
		assert.Equal(t, "record payload", truncErr.What)
		assert.Equal(t, int64(schema.MaxFieldSize), truncErr.Need)
	})

	t.Run("legacy stops before the oversized record", func(t *testing.T) {
		f := lagertest.New(huge)
		f.Record(imuID, 0)

		sc, s := open(t, f.Bytes(), true)
		stats, err := sc.ScanInto(s.NewAccumulator())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Records)
	})

	t.Run("legacy never reads past the source", func(t *testing.T) {
		f := lagertest.New(lagertest.Format{UUID: imuID, Key: "g", Fields: []lagertest.Field{
			{Name: "blob", Type: "float32", Size: 1 << 30},
		}})
		f.Record(imuID, 0)
		s, err := schema.Parse(f.Schema())
		require.NoError(t, err)

		data := f.Bytes()
		sc := NewScanner(bytes.NewReader(data[HeaderSize:HeaderSize+24]), s, ScannerConfig{
			EndOffset: 1 << 40,
			Limit:     HeaderSize + 24,
			Legacy:    true,
		})
		_, err = sc.Next()
		var truncErr *TruncatedInputError
		require.True(t, errors.As(err, &truncErr))
		assert.Equal(t, "blob", truncErr.What)
		assert.Equal(t, int64(0), truncErr.Have)
		assert.Equal(t, int64(HeaderSize+24), sc.Offset())
	})
}

func TestScanner_DecodeErrors(t *testing.T) {
	t.Run("size disagrees with type", func(t *testing.T) {
		f := lagertest.New(lagertest.Format{UUID: imuID, Key: "g", Fields: []lagertest.Field{
			{Name: "wide", Type: "float32", Size: 8},
		}})
		f.Record(imuID, 0, codec.Float64Value(1))

		sc, s := open(t, f.Bytes(), false)
		_, err := sc.ScanInto(s.NewAccumulator())
		var decErr *codec.DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Equal(t, "wide", decErr.Field)
		assert.Equal(t, int64(HeaderSize+24), decErr.Offset)
	})

	t.Run("unknown type tag", func(t *testing.T) {
		f := lagertest.New(lagertest.Format{UUID: imuID, Key: "g", Fields: []lagertest.Field{
			{Name: "d", Type: "double", Size: 8},
		}})
		f.Record(imuID, 0, codec.Float64Value(1))

		sc, s := open(t, f.Bytes(), false)
		_, err := sc.ScanInto(s.NewAccumulator())
		var decErr *codec.DecodeError
		require.True(t, errors.As(err, &decErr))
		assert.Contains(t, decErr.Error(), `"double"`)
	})
}

func TestScanner_Iterator(t *testing.T) {
	f := lagertest.New(imuFormat, powerFormat)
	f.Record(powerID, 7, codec.Float64Value(3))
	f.Record(imuID, 8, codec.Float32Value(4), codec.UintValue(codec.Uint16, 5))

	sc, _ := open(t, f.Bytes(), false)
	it := sc.Iterator()
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, it.Record().Descriptor.Key)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"power", "imu"}, keys)
	assert.False(t, it.Next())
}
