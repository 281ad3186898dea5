// Package codec decodes the primitive field values carried by LAGER records.
//
// A LAGER record payload is a packed sequence of fixed-width scalars whose layout
// is declared by the embedded XML schema. Every scalar is stored big-endian
// ("network byte order") with no padding or alignment between fields.
//
// # Primitive Types
//
// The schema names each field's type with one of the following tags:
//
//	tag        DType     width  interpretation
//	int8_t     Int8      1      two's complement
//	uint8_t    Uint8     1      unsigned
//	int16_t    Int16     2      two's complement
//	uint16_t   Uint16    2      unsigned
//	int32_t    Int32     4      two's complement
//	uint32_t   Uint32    4      unsigned
//	int64_t    Int64     8      two's complement
//	uint64_t   Uint64    8      unsigned
//	float32    Float32   4      IEEE-754 binary32
//	float64    Float64   8      IEEE-754 binary64
//
// Any other tag parses to Invalid. Invalid is kept rather than rejected so the
// schema can still be loaded; decoding a value of an Invalid type always fails.
//
// # Usage
//
//	dt, err := codec.ParseDType("float32")
//	if err != nil {
//	    return err
//	}
//
//	v, err := dt.Decode([]byte{0x3F, 0x80, 0x00, 0x00})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(v.Float64()) // 1
//
// # Error Handling
//
// Decode returns a *DecodeError when the buffer length differs from the type's
// width or when the type is Invalid. Callers match it with errors.As.
//
// # Thread Safety
//
// DType and Value are plain values and safe to share between goroutines.
package codec
