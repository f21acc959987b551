package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Type is the "@type" discriminator of a serialized record.
type Type string

const (
	TypePoint         Type = "Point"
	TypeClick         Type = "Click"
	TypeAction        Type = "Action"
	TypePolygon       Type = "Polygon"
	TypeImage         Type = "Image"
	TypeClickResult   Type = "ClickResult"
	TypeSurfaceResult Type = "SurfaceResult"
)

const typeKey = "@type"

// ErrUnknownType is returned when a record carries a missing, unknown or
// unexpected "@type" tag.
var ErrUnknownType = errors.New("unknown record type")

// Record is the closed set of serializable variants.
type Record interface {
	RecordType() Type
	isRecord()
}

func (Point) RecordType() Type         { return TypePoint }
func (Click) RecordType() Type         { return TypeClick }
func (Action) RecordType() Type        { return TypeAction }
func (Polygon) RecordType() Type       { return TypePolygon }
func (Image) RecordType() Type         { return TypeImage }
func (ClickResult) RecordType() Type   { return TypeClickResult }
func (SurfaceResult) RecordType() Type { return TypeSurfaceResult }

func (Point) isRecord()         {}
func (Click) isRecord()         {}
func (Action) isRecord()        {}
func (Polygon) isRecord()       {}
func (Image) isRecord()         {}
func (ClickResult) isRecord()   {}
func (SurfaceResult) isRecord() {}

func (p Point) MarshalJSON() ([]byte, error) {
	type plain Point
	return marshalTagged(TypePoint, plain(p))
}

func (p *Point) UnmarshalJSON(data []byte) error {
	type plain Point
	return unmarshalTagged(data, TypePoint, (*plain)(p))
}

func (c Click) MarshalJSON() ([]byte, error) {
	type plain Click
	return marshalTagged(TypeClick, plain(c))
}

func (c *Click) UnmarshalJSON(data []byte) error {
	type plain Click
	return unmarshalTagged(data, TypeClick, (*plain)(c))
}

func (a Action) MarshalJSON() ([]byte, error) {
	type plain Action
	return marshalTagged(TypeAction, plain(a))
}

func (a *Action) UnmarshalJSON(data []byte) error {
	type plain Action
	return unmarshalTagged(data, TypeAction, (*plain)(a))
}

func (p Polygon) MarshalJSON() ([]byte, error) {
	type plain Polygon
	return marshalTagged(TypePolygon, plain(p))
}

func (p *Polygon) UnmarshalJSON(data []byte) error {
	type plain Polygon
	return unmarshalTagged(data, TypePolygon, (*plain)(p))
}

func (img Image) MarshalJSON() ([]byte, error) {
	type plain Image
	return marshalTagged(TypeImage, plain(img))
}

func (img *Image) UnmarshalJSON(data []byte) error {
	type plain Image
	return unmarshalTagged(data, TypeImage, (*plain)(img))
}

func (r ClickResult) MarshalJSON() ([]byte, error) {
	type plain ClickResult
	return marshalTagged(TypeClickResult, plain(r))
}

func (r *ClickResult) UnmarshalJSON(data []byte) error {
	type plain ClickResult
	return unmarshalTagged(data, TypeClickResult, (*plain)(r))
}

func (r SurfaceResult) MarshalJSON() ([]byte, error) {
	type plain SurfaceResult
	return marshalTagged(TypeSurfaceResult, plain(r))
}

func (r *SurfaceResult) UnmarshalJSON(data []byte) error {
	type plain SurfaceResult
	return unmarshalTagged(data, TypeSurfaceResult, (*plain)(r))
}

// marshalTagged encodes v as a JSON object with the "@type" key first.
func marshalTagged(t Type, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("record %s did not encode as an object", t)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(t) + 12)
	buf.WriteString(`{"` + typeKey + `":"`)
	buf.WriteString(string(t))
	buf.WriteByte('"')
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// unmarshalTagged decodes data into v after checking that an "@type" tag,
// when present, names t.
func unmarshalTagged(data []byte, t Type, v interface{}) error {
	tag, err := peekType(data)
	if err != nil {
		return err
	}
	if tag != "" && tag != t {
		return fmt.Errorf("%w: expected %s, got %s", ErrUnknownType, t, tag)
	}
	return json.Unmarshal(data, v)
}

func peekType(data []byte) (Type, error) {
	var head struct {
		Type Type `json:"@type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	return head.Type, nil
}

// DecodeRecord decodes one tagged JSON object into its variant. The returned
// record is a pointer (*Point, *Image, ...).
func DecodeRecord(data []byte) (Record, error) {
	tag, err := peekType(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var rec Record
	switch tag {
	case TypePoint:
		rec = &Point{}
	case TypeClick:
		rec = &Click{}
	case TypeAction:
		rec = &Action{}
	case TypePolygon:
		rec = &Polygon{}
	case TypeImage:
		rec = &Image{}
	case TypeClickResult:
		rec = &ClickResult{}
	case TypeSurfaceResult:
		rec = &SurfaceResult{}
	case "":
		return nil, fmt.Errorf("%w: missing %s", ErrUnknownType, typeKey)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag)
	}

	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", tag, err)
	}
	return rec, nil
}

// ReadRecords decodes either a JSON array of tagged records or a single
// tagged record.
func ReadRecords(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] != '[' {
		rec, err := DecodeRecord(data)
		if err != nil {
			return nil, err
		}
		return []Record{rec}, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse record list: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for i, item := range raw {
		rec, err := DecodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadImages decodes Image records; any other variant is an error.
func ReadImages(r io.Reader) ([]*Image, error) {
	records, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}
	imgs := make([]*Image, 0, len(records))
	for i, rec := range records {
		img, ok := rec.(*Image)
		if !ok {
			return nil, fmt.Errorf("record %d: %w: expected %s, got %s", i, ErrUnknownType, TypeImage, rec.RecordType())
		}
		imgs = append(imgs, img)
	}
	return imgs, nil
}

// WriteRecords writes records as an indented JSON array.
func WriteRecords(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}
