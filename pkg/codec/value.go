package codec

import (
	"math"
	"strconv"
)

// Value is a single decoded scalar. It keeps the native interpretation of its
// type so integer values survive exactly until a caller chooses a conversion.
type Value struct {
	Type DType
	bits uint64
}

// IntValue builds a signed integer value of type t
func IntValue(t DType, v int64) Value {
	return Value{Type: t, bits: uint64(v)}
}

// UintValue builds an unsigned integer value of type t
func UintValue(t DType, v uint64) Value {
	return Value{Type: t, bits: v}
}

// Float32Value builds a float32 value
func Float32Value(v float32) Value {
	return Value{Type: Float32, bits: uint64(math.Float32bits(v))}
}

// Float64Value builds a float64 value
func Float64Value(v float64) Value {
	return Value{Type: Float64, bits: math.Float64bits(v)}
}

// Int64 returns the value as a signed integer. Floats are truncated toward zero.
func (v Value) Int64() int64 {
	switch {
	case v.Type == Float32:
		return int64(math.Float32frombits(uint32(v.bits)))
	case v.Type == Float64:
		return int64(math.Float64frombits(v.bits))
	default:
		return int64(v.bits)
	}
}

// Uint64 returns the value as an unsigned integer. Floats are truncated toward zero.
func (v Value) Uint64() uint64 {
	switch {
	case v.Type == Float32:
		return uint64(math.Float32frombits(uint32(v.bits)))
	case v.Type == Float64:
		return uint64(math.Float64frombits(v.bits))
	default:
		return v.bits
	}
}

// Float64 returns the value as a float64
func (v Value) Float64() float64 {
	switch {
	case v.Type == Float32:
		return float64(math.Float32frombits(uint32(v.bits)))
	case v.Type == Float64:
		return math.Float64frombits(v.bits)
	case v.Type.IsSigned():
		return float64(int64(v.bits))
	default:
		return float64(v.bits)
	}
}

// Float32 returns the value narrowed to float32. This is the lossy
// normalization applied to every column on output.
func (v Value) Float32() float32 {
	switch {
	case v.Type == Float32:
		return math.Float32frombits(uint32(v.bits))
	case v.Type == Float64:
		return float32(math.Float64frombits(v.bits))
	case v.Type.IsSigned():
		return float32(int64(v.bits))
	default:
		return float32(v.bits)
	}
}

func (v Value) String() string {
	switch {
	case v.Type == Float32:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 32)
	case v.Type == Float64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case v.Type.IsSigned():
		return strconv.FormatInt(int64(v.bits), 10)
	default:
		return strconv.FormatUint(v.bits, 10)
	}
}
