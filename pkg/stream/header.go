package stream

import (
	"encoding/binary"
	"io"
)

// ReadHeader reads the 10-byte header from r, which must be positioned at offset 0
func ReadHeader(r io.Reader) (Header, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, &TruncatedInputError{What: "header", Need: HeaderSize, Have: int64(n)}
		}
		return Header{}, err
	}
	return ParseHeader(buf)
}

// ParseHeader decodes the header from the first HeaderSize bytes of data
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &TruncatedInputError{What: "header", Need: HeaderSize, Have: int64(len(data))}
	}
	return Header{
		Version:    binary.BigEndian.Uint16(data[0:2]),
		DataOffset: binary.BigEndian.Uint64(data[2:10]),
	}, nil
}

// EncodeHeader is the inverse of ParseHeader
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], h.Version)
	binary.BigEndian.PutUint64(buf[2:10], h.DataOffset)
	return buf
}
