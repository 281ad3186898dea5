// Package lagertest builds LAGER files in memory for tests.
package lagertest

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"fmt"

	"github.com/google/uuid"

	"github.com/ssargent/lagerconv/pkg/codec"
)

// Field declares one item of a format. A zero Size uses the type's width.
type Field struct {
	Name string
	Type string
	Size int
}

// Format declares one record type
type Format struct {
	UUID    string
	Version string
	Key     string
	Fields  []Field
}

// File accumulates records and renders a complete LAGER file
type File struct {
	Version  uint16
	Formats  []Format
	Metadata [][2]string

	// DataOffset overrides the computed header offset when non-zero
	DataOffset uint64

	body bytes.Buffer
}

// New starts a file with format version 1
func New(formats ...Format) *File {
	return &File{Version: 1, Formats: formats}
}

// Record appends one record with the given identifier, timestamp and field values
func (f *File) Record(id string, ts uint64, values ...codec.Value) *File {
	u := uuid.MustParse(id)
	f.body.Write(u[:])

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], ts)
	f.body.Write(tsBuf[:])

	for _, v := range values {
		buf, err := codec.Encode(v)
		if err != nil {
			panic(err)
		}
		f.body.Write(buf)
	}
	return f
}

// Raw appends bytes to the record stream as-is
func (f *File) Raw(p []byte) *File {
	f.body.Write(p)
	return f
}

// BodyLen returns the current length of the record stream
func (f *File) BodyLen() int {
	return f.body.Len()
}

type xmlItem struct {
	XMLName xml.Name `xml:"item"`
	Name    string   `xml:"name,attr"`
	Type    string   `xml:"type,attr"`
	Size    int      `xml:"size,attr"`
	Offset  int      `xml:"offset,attr"`
}

type xmlFormat struct {
	XMLName xml.Name  `xml:"format"`
	UUID    string    `xml:"uuid,attr"`
	Version string    `xml:"version,attr"`
	Key     string    `xml:"key,attr"`
	Items   []xmlItem `xml:"item"`
}

type xmlMeta struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

type xmlKeg struct {
	XMLName  xml.Name    `xml:"keg"`
	Formats  []xmlFormat `xml:"formats>format"`
	Metadata []xmlMeta   `xml:"metadata>meta,omitempty"`
}

// Schema renders the embedded schema document
func (f *File) Schema() []byte {
	doc := xmlKeg{}
	for _, fm := range f.Formats {
		xf := xmlFormat{UUID: fm.UUID, Version: fm.Version, Key: fm.Key}
		if xf.Version == "" {
			xf.Version = "1"
		}
		offset := 0
		for _, fld := range fm.Fields {
			size := fld.Size
			if size == 0 {
				dt, err := codec.ParseDType(fld.Type)
				if err != nil {
					panic(fmt.Sprintf("field %s needs an explicit size: %v", fld.Name, err))
				}
				size = dt.Width()
			}
			xf.Items = append(xf.Items, xmlItem{Name: fld.Name, Type: fld.Type, Size: size, Offset: offset})
			offset += size
		}
		doc.Formats = append(doc.Formats, xf)
	}
	for _, m := range f.Metadata {
		doc.Metadata = append(doc.Metadata, xmlMeta{Key: m[0], Value: m[1]})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		panic(err)
	}
	return append([]byte(xml.Header), out...)
}

// Bytes renders header, record stream and schema
func (f *File) Bytes() []byte {
	offset := f.DataOffset
	if offset == 0 {
		offset = uint64(2 + 8 + f.body.Len())
	}

	var out bytes.Buffer
	var hdr [10]byte
	binary.BigEndian.PutUint16(hdr[0:2], f.Version)
	binary.BigEndian.PutUint64(hdr[2:10], offset)
	out.Write(hdr[:])
	out.Write(f.body.Bytes())
	out.Write(f.Schema())
	return out.Bytes()
}
