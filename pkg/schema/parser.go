package schema

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/ssargent/lagerconv/pkg/codec"
)

// SchemaParseError reports malformed or incomplete schema markup
type SchemaParseError struct {
	Element string
	Attr    string
	Err     error
}

func (e *SchemaParseError) Error() string {
	switch {
	case e.Attr != "":
		return fmt.Sprintf("schema: <%s> attribute %q: %v", e.Element, e.Attr, e.Err)
	case e.Element != "":
		return fmt.Sprintf("schema: <%s>: %v", e.Element, e.Err)
	default:
		return fmt.Sprintf("schema: %v", e.Err)
	}
}

func (e *SchemaParseError) Unwrap() error {
	return e.Err
}

var (
	errMissingAttr = errors.New("required attribute missing")
	errEmptyAttr   = errors.New("must not be empty")
)

// MaxFieldSize bounds a field's size and offset, the payload of one record
// type and the sum of every field size in a schema
const MaxFieldSize = math.MaxInt32

type rawElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr   `xml:",any,attr"`
	Items   []rawElement `xml:",any"`
}

func (r *rawElement) attr(name string) (string, bool) {
	for _, a := range r.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (r *rawElement) required(name string) (string, error) {
	v, ok := r.attr(name)
	if !ok {
		return "", &SchemaParseError{Element: r.XMLName.Local, Attr: name, Err: errMissingAttr}
	}
	return v, nil
}

// requiredName is required for attributes that become group or dataset names
func (r *rawElement) requiredName(name string) (string, error) {
	v, err := r.required(name)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", &SchemaParseError{Element: r.XMLName.Local, Attr: name, Err: errEmptyAttr}
	}
	return v, nil
}

func (r *rawElement) requiredInt(name string) (int, error) {
	s, err := r.required(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &SchemaParseError{Element: r.XMLName.Local, Attr: name, Err: fmt.Errorf("not a non-negative integer: %q", s)}
	}
	if n > MaxFieldSize {
		return 0, &SchemaParseError{Element: r.XMLName.Local, Attr: name, Err: fmt.Errorf("%d exceeds %d", n, MaxFieldSize)}
	}
	return n, nil
}

// Parse reads the schema document from blob. Parsing is deterministic: the same
// blob always yields structurally identical results.
func Parse(blob []byte) (*Schema, error) {
	s := &Schema{index: make(map[uuid.UUID]*Descriptor)}

	dec := xml.NewDecoder(bytes.NewReader(blob))
	// the logger's serializer may declare UTF-16 while writing UTF-8 bytes
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	depth := 0
	sawRoot := false
	seenMeta := make(map[string]bool)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &SchemaParseError{Err: err}
		}

		switch el := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			switch el.Name.Local {
			case "format":
				var raw rawElement
				if err := dec.DecodeElement(&raw, &el); err != nil {
					return nil, &SchemaParseError{Element: "format", Err: err}
				}
				if err := s.addFormat(&raw); err != nil {
					return nil, err
				}
			case "meta":
				var raw rawElement
				if err := dec.DecodeElement(&raw, &el); err != nil {
					return nil, &SchemaParseError{Element: "meta", Err: err}
				}
				key, err := raw.requiredName("key")
				if err != nil {
					return nil, err
				}
				if seenMeta[key] {
					return nil, &SchemaParseError{Element: "meta", Attr: "key", Err: fmt.Errorf("duplicate key %q", key)}
				}
				seenMeta[key] = true
				value, _ := raw.attr("value")
				s.Metadata = append(s.Metadata, MetaEntry{Key: key, Value: value})
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}

		// anything after the root element closes is not part of the document
		if sawRoot && depth == 0 {
			break
		}
	}

	if !sawRoot {
		return nil, &SchemaParseError{Err: errors.New("document has no root element")}
	}

	return s, nil
}

func (s *Schema) addFormat(raw *rawElement) error {
	rawID, err := raw.required("uuid")
	if err != nil {
		return err
	}
	version, err := raw.required("version")
	if err != nil {
		return err
	}
	key, err := raw.requiredName("key")
	if err != nil {
		return err
	}

	d := &Descriptor{RawID: rawID, Version: version, Key: key}
	if id, err := uuid.Parse(rawID); err == nil {
		d.ID = id
		d.Valid = true
	}

	var payload int64
	for i := range raw.Items {
		f, err := parseField(&raw.Items[i], d)
		if err != nil {
			return err
		}
		payload += int64(f.Size)
		d.Fields = append(d.Fields, f)
	}
	if payload > MaxFieldSize {
		return &SchemaParseError{Element: "format", Attr: "size", Err: fmt.Errorf("record payload of %d bytes exceeds %d", payload, MaxFieldSize)}
	}
	if total := int64(s.TotalFieldSize()) + payload; total > MaxFieldSize {
		return &SchemaParseError{Element: "format", Attr: "size", Err: fmt.Errorf("schema field sizes total %d bytes, more than %d", total, MaxFieldSize)}
	}

	if d.Valid {
		if _, dup := s.index[d.ID]; dup {
			return &SchemaParseError{Element: "format", Attr: "uuid", Err: fmt.Errorf("duplicate identifier %s", d.ID)}
		}
		s.index[d.ID] = d
	}

	s.Descriptors = append(s.Descriptors, d)
	s.Fields = append(s.Fields, d.Fields...)
	return nil
}

func parseField(raw *rawElement, owner *Descriptor) (FieldLayout, error) {
	name, err := raw.requiredName("name")
	if err != nil {
		return FieldLayout{}, err
	}
	offset, err := raw.requiredInt("offset")
	if err != nil {
		return FieldLayout{}, err
	}
	size, err := raw.requiredInt("size")
	if err != nil {
		return FieldLayout{}, err
	}
	tag, err := raw.required("type")
	if err != nil {
		return FieldLayout{}, err
	}

	// an unknown tag stays Invalid and fails at decode time
	dt, _ := codec.ParseDType(tag)

	return FieldLayout{
		Name:    name,
		Offset:  offset,
		Size:    size,
		Type:    dt,
		TypeTag: tag,
		Owner:   owner.ID,
		Key:     owner.Key,
	}, nil
}
