package codec

import (
	"encoding/binary"
	"fmt"
)

// DType is the closed set of primitive field types a LAGER schema can declare
type DType uint8

const (
	Invalid DType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var dtypeTags = [...]string{
	Invalid: "invalid",
	Int8:    "int8_t",
	Uint8:   "uint8_t",
	Int16:   "int16_t",
	Uint16:  "uint16_t",
	Int32:   "int32_t",
	Uint32:  "uint32_t",
	Int64:   "int64_t",
	Uint64:  "uint64_t",
	Float32: "float32",
	Float64: "float64",
}

// ParseDType maps a schema type tag to its DType. Unknown tags return Invalid
// together with an error.
func ParseDType(tag string) (DType, error) {
	for dt := Int8; dt <= Float64; dt++ {
		if dtypeTags[dt] == tag {
			return dt, nil
		}
	}
	return Invalid, fmt.Errorf("unrecognized primitive type %q", tag)
}

// String returns the schema tag for the type
func (d DType) String() string {
	if int(d) < len(dtypeTags) {
		return dtypeTags[d]
	}
	return fmt.Sprintf("DType(%d)", uint8(d))
}

// Valid reports whether d is one of the recognized primitive types
func (d DType) Valid() bool {
	return d >= Int8 && d <= Float64
}

// Width returns the encoded size in bytes, or 0 for Invalid
func (d DType) Width() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether d is one of the IEEE-754 types
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// IsSigned reports whether d is a two's complement integer type
func (d DType) IsSigned() bool {
	switch d {
	case Int8, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}

// Decode interprets buf as a big-endian value of type d.
// The buffer length must equal d.Width().
func (d DType) Decode(buf []byte) (Value, error) {
	if !d.Valid() {
		return Value{}, &DecodeError{Type: d, Size: len(buf), Reason: "unrecognized primitive type"}
	}
	if len(buf) != d.Width() {
		return Value{}, &DecodeError{
			Type:   d,
			Size:   len(buf),
			Reason: fmt.Sprintf("buffer length %d does not match width %d", len(buf), d.Width()),
		}
	}

	var bits uint64
	switch d {
	case Int8:
		bits = uint64(int64(int8(buf[0])))
	case Uint8:
		bits = uint64(buf[0])
	case Int16:
		bits = uint64(int64(int16(binary.BigEndian.Uint16(buf))))
	case Uint16:
		bits = uint64(binary.BigEndian.Uint16(buf))
	case Int32:
		bits = uint64(int64(int32(binary.BigEndian.Uint32(buf))))
	case Uint32, Float32:
		bits = uint64(binary.BigEndian.Uint32(buf))
	case Int64, Uint64, Float64:
		bits = binary.BigEndian.Uint64(buf)
	}

	return Value{Type: d, bits: bits}, nil
}

// Encode writes v in its big-endian wire form. It is the inverse of Decode and
// exists for building fixtures.
func Encode(v Value) ([]byte, error) {
	if !v.Type.Valid() {
		return nil, &DecodeError{Type: v.Type, Reason: "unrecognized primitive type"}
	}

	buf := make([]byte, v.Type.Width())
	switch v.Type.Width() {
	case 1:
		buf[0] = byte(v.bits)
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(v.bits))
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(v.bits))
	case 8:
		binary.BigEndian.PutUint64(buf, v.bits)
	}
	return buf, nil
}

// DecodeError reports a field or record that could not be decoded
type DecodeError struct {
	Field  string // field name, when known
	Type   DType
	Size   int
	Offset int64 // absolute file offset, when known
	Reason string
}

func (e *DecodeError) Error() string {
	msg := "decode"
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Type != Invalid || e.Size > 0 {
		msg += fmt.Sprintf(" %s (%d bytes)", e.Type, e.Size)
	}
	if e.Offset > 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	return msg + ": " + e.Reason
}
