package sink

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeFloat32s packs data as consecutive big-endian IEEE-754 binary32 values
func encodeFloat32s(data []float32) []byte {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.BigEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeFloat32s(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("dataset length %d is not a multiple of 4", len(buf))
	}
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.BigEndian.Uint32(buf[4*i:]))
	}
	return out, nil
}
