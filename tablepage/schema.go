package tablepage

import (
	"encoding/binary"
	"fmt"
)

// TypeID tags the wire representation of a Value. Trimmed down from the
// teacher's schema.go: only the two scalar kinds a table page's slots
// need to round-trip are kept, since the rest of the value/typing
// system is out of this repo's scope.
type TypeID uint8

const (
	TypeInt TypeID = iota
	TypeVarchar
)

func (t TypeID) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeVarchar:
		return "varchar"
	default:
		return "<invalid type id>"
	}
}

// Field describes one column: its name, wire type, and fixed width.
type Field struct {
	Name string
	Type TypeID
	Len  uint8
}

// Value holds one column's data for a single row.
type Value struct {
	Type TypeID
	Int  int32
	Str  string
}

func (f *Field) typecheck(v Value) error {
	if f.Type != v.Type {
		return fmt.Errorf("field %s: expected %v, got %v", f.Name, f.Type, v.Type)
	}
	if f.Type == TypeVarchar && len(v.Str) > int(f.Len) {
		return fmt.Errorf("field %s: value too long (max %d)", f.Name, f.Len)
	}
	return nil
}

func (f *Field) read(data []byte) Value {
	switch f.Type {
	case TypeInt:
		return Value{Type: TypeInt, Int: int32(binary.LittleEndian.Uint32(data[:4]))}
	case TypeVarchar:
		n := int(f.Len)
		for n > 0 && data[n-1] == 0 {
			n--
		}
		return Value{Type: TypeVarchar, Str: string(data[:n])}
	default:
		panic("unhandled type id")
	}
}

func (f *Field) write(dst []byte, v Value) {
	switch v.Type {
	case TypeInt:
		binary.LittleEndian.PutUint32(dst, uint32(v.Int))
	case TypeVarchar:
		n := copy(dst, v.Str)
		for i := n; i < int(f.Len); i++ {
			dst[i] = 0
		}
	default:
		panic("unhandled type id")
	}
}

// Row is one tuple's values, positional against a Schema's Fields.
type Row []Value

// Schema is a fixed-width row layout: an ordered list of fields plus
// their total encoded length.
type Schema struct {
	Fields   []Field
	RowBytes int
}

// NewSchema builds a Schema from field descriptions.
func NewSchema(fields []Field) Schema {
	s := Schema{Fields: make([]Field, 0, len(fields))}
	for _, f := range fields {
		s.Fields = append(s.Fields, f)
		s.RowBytes += int(f.Len)
	}
	return s
}

// Typecheck reports whether row matches the schema's field types and
// widths.
func (s *Schema) Typecheck(row Row) error {
	if len(row) != len(s.Fields) {
		return fmt.Errorf("expected %d values, got %d", len(s.Fields), len(row))
	}
	for i := range s.Fields {
		if err := s.Fields[i].typecheck(row[i]); err != nil {
			return err
		}
	}
	return nil
}

// ReadRow decodes one row out of data, which must hold at least
// RowBytes bytes.
func (s *Schema) ReadRow(data []byte) (Row, error) {
	if len(data) < s.RowBytes {
		return nil, fmt.Errorf("not enough data for row: have %d, need %d", len(data), s.RowBytes)
	}
	row := make(Row, 0, len(s.Fields))
	offset := 0
	for _, f := range s.Fields {
		row = append(row, f.read(data[offset:]))
		offset += int(f.Len)
	}
	return row, nil
}

// WriteRow encodes row into dst, which must hold at least RowBytes
// bytes.
func (s *Schema) WriteRow(dst []byte, row Row) error {
	if len(dst) < s.RowBytes {
		return fmt.Errorf("not enough space for row: have %d, need %d", len(dst), s.RowBytes)
	}
	offset := 0
	for i, f := range s.Fields {
		f.write(dst[offset:], row[i])
		offset += int(f.Len)
	}
	return nil
}
