// Package record implements the SQLite record format: a varint header of
// serial type codes followed by the column values in sequence.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/FocuswithJustin/litefile/core/litefile/internal/utf"
	"github.com/FocuswithJustin/litefile/core/litefile/internal/varint"
)

// Sentinel errors for record decoding.
var (
	ErrTruncated     = errors.New("record truncated")
	ErrSerialType    = errors.New("unsupported serial type")
	ErrColumnRange   = errors.New("column index out of range")
	ErrCorruptHeader = errors.New("corrupt record header")
)

// SerialType represents a SQLite serial type code.
type SerialType uint64

const (
	SerialTypeNull    SerialType = 0
	SerialTypeInt8    SerialType = 1
	SerialTypeInt16   SerialType = 2
	SerialTypeInt24   SerialType = 3
	SerialTypeInt32   SerialType = 4
	SerialTypeInt48   SerialType = 5
	SerialTypeInt64   SerialType = 6
	SerialTypeFloat64 SerialType = 7
	SerialTypeZero    SerialType = 8
	SerialTypeOne     SerialType = 9
)

// IsBlob reports whether the serial type encodes a BLOB.
func (st SerialType) IsBlob() bool { return st >= 12 && st%2 == 0 }

// IsText reports whether the serial type encodes TEXT.
func (st SerialType) IsText() bool { return st >= 13 && st%2 == 1 }

// Size returns the number of body bytes a value of this serial type occupies.
func (st SerialType) Size() int {
	switch st {
	case SerialTypeNull, SerialTypeZero, SerialTypeOne:
		return 0
	case SerialTypeInt8:
		return 1
	case SerialTypeInt16:
		return 2
	case SerialTypeInt24:
		return 3
	case SerialTypeInt32:
		return 4
	case SerialTypeInt48:
		return 6
	case SerialTypeInt64, SerialTypeFloat64:
		return 8
	default:
		if st >= 12 {
			return int(st-12) / 2
		}
		return 0
	}
}

// ValueType represents the type of a decoded value.
type ValueType int

const (
	TypeNull ValueType = iota
	TypeInteger
	TypeFloat
	TypeText
	TypeBlob
)

func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	}
	return "UNKNOWN"
}

// Value represents a single decoded column value.
type Value struct {
	Type   ValueType
	Int    int64
	Float  float64
	Text   string
	Blob   []byte
	IsNull bool
}

// String renders the value the way the sqlite3 shell would.
func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "NULL"
	case TypeInteger:
		return fmt.Sprintf("%d", v.Int)
	case TypeFloat:
		return fmt.Sprintf("%g", v.Float)
	case TypeText:
		return v.Text
	case TypeBlob:
		return fmt.Sprintf("x'%x'", v.Blob)
	}
	return ""
}

// Record is a decoded row or index key.
type Record struct {
	Values []Value
}

// Column returns the value at the given zero-based index.
func (r *Record) Column(i int) (Value, error) {
	if i < 0 || i >= len(r.Values) {
		return Value{}, fmt.Errorf("%w: %d of %d", ErrColumnRange, i, len(r.Values))
	}
	return r.Values[i], nil
}

// Len returns the number of columns in the record.
func (r *Record) Len() int { return len(r.Values) }

// Text encoding values from the database header.
const (
	EncodingUTF8    = 1
	EncodingUTF16LE = 2
	EncodingUTF16BE = 3
)

// Decode parses a record assuming UTF-8 text encoding.
func Decode(data []byte) (*Record, error) {
	return DecodeEncoding(data, EncodingUTF8)
}

// DecodeEncoding parses a record, interpreting TEXT values according to the
// database's declared text encoding.
func DecodeEncoding(data []byte, encoding uint32) (*Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrTruncated)
	}

	headerSize, n, err := varint.Get(data)
	if err != nil {
		return nil, fmt.Errorf("%w: header size", ErrTruncated)
	}
	if headerSize < uint64(n) || headerSize > uint64(len(data)) {
		return nil, fmt.Errorf("%w: header size %d for %d byte record", ErrCorruptHeader, headerSize, len(data))
	}

	offset := n
	var serialTypes []SerialType
	for offset < int(headerSize) {
		st, n, err := varint.Get(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("%w: serial type", ErrTruncated)
		}
		if st == 10 || st == 11 {
			return nil, fmt.Errorf("%w: reserved code %d", ErrSerialType, st)
		}
		serialTypes = append(serialTypes, SerialType(st))
		offset += n
	}

	values := make([]Value, len(serialTypes))
	for i, st := range serialTypes {
		val, n, err := decodeValue(data, offset, st, encoding)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		values[i] = val
		offset += n
	}

	return &Record{Values: values}, nil
}

// decodeValue decodes a single value from the record body, returning the
// value and the number of body bytes consumed.
func decodeValue(data []byte, offset int, st SerialType, encoding uint32) (Value, int, error) {
	switch st {
	case SerialTypeNull:
		return Value{Type: TypeNull, IsNull: true}, 0, nil

	case SerialTypeZero:
		return Value{Type: TypeInteger, Int: 0}, 0, nil

	case SerialTypeOne:
		return Value{Type: TypeInteger, Int: 1}, 0, nil

	case SerialTypeInt8:
		if offset >= len(data) {
			return Value{}, 0, fmt.Errorf("%w: int8", ErrTruncated)
		}
		return Value{Type: TypeInteger, Int: int64(int8(data[offset]))}, 1, nil

	case SerialTypeInt16:
		if offset+2 > len(data) {
			return Value{}, 0, fmt.Errorf("%w: int16", ErrTruncated)
		}
		v := int64(int16(binary.BigEndian.Uint16(data[offset:])))
		return Value{Type: TypeInteger, Int: v}, 2, nil

	case SerialTypeInt24:
		if offset+3 > len(data) {
			return Value{}, 0, fmt.Errorf("%w: int24", ErrTruncated)
		}
		v := int32(data[offset])<<16 | int32(data[offset+1])<<8 | int32(data[offset+2])
		if v&0x800000 != 0 {
			v |= ^0xffffff // Sign extend
		}
		return Value{Type: TypeInteger, Int: int64(v)}, 3, nil

	case SerialTypeInt32:
		if offset+4 > len(data) {
			return Value{}, 0, fmt.Errorf("%w: int32", ErrTruncated)
		}
		v := int64(int32(binary.BigEndian.Uint32(data[offset:])))
		return Value{Type: TypeInteger, Int: v}, 4, nil

	case SerialTypeInt48:
		if offset+6 > len(data) {
			return Value{}, 0, fmt.Errorf("%w: int48", ErrTruncated)
		}
		v := int64(data[offset])<<40 | int64(data[offset+1])<<32 |
			int64(data[offset+2])<<24 | int64(data[offset+3])<<16 |
			int64(data[offset+4])<<8 | int64(data[offset+5])
		if v&0x800000000000 != 0 {
			v |= ^0xffffffffffff // Sign extend
		}
		return Value{Type: TypeInteger, Int: v}, 6, nil

	case SerialTypeInt64:
		if offset+8 > len(data) {
			return Value{}, 0, fmt.Errorf("%w: int64", ErrTruncated)
		}
		v := int64(binary.BigEndian.Uint64(data[offset:]))
		return Value{Type: TypeInteger, Int: v}, 8, nil

	case SerialTypeFloat64:
		if offset+8 > len(data) {
			return Value{}, 0, fmt.Errorf("%w: float64", ErrTruncated)
		}
		bits := binary.BigEndian.Uint64(data[offset:])
		return Value{Type: TypeFloat, Float: math.Float64frombits(bits)}, 8, nil

	default:
		if st == 10 || st == 11 {
			return Value{}, 0, fmt.Errorf("%w: reserved code %d", ErrSerialType, st)
		}
		length := st.Size()
		if offset+length > len(data) {
			return Value{}, 0, fmt.Errorf("%w: blob/text of %d bytes", ErrTruncated, length)
		}
		b := make([]byte, length)
		copy(b, data[offset:offset+length])

		if st.IsBlob() {
			return Value{Type: TypeBlob, Blob: b}, length, nil
		}
		text, err := decodeText(b, encoding)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Type: TypeText, Text: text}, length, nil
	}
}

func decodeText(b []byte, encoding uint32) (string, error) {
	switch encoding {
	case EncodingUTF8:
		return string(b), nil
	case EncodingUTF16LE:
		return utf.DecodeUTF16LE(b), nil
	case EncodingUTF16BE:
		return utf.DecodeUTF16BE(b), nil
	default:
		return "", fmt.Errorf("%w: text encoding %d", ErrSerialType, encoding)
	}
}

// SerialTypeFor determines the serial type a value would be stored with.
func SerialTypeFor(val Value) SerialType {
	switch val.Type {
	case TypeNull:
		return SerialTypeNull
	case TypeInteger:
		i := val.Int
		switch {
		case i == 0:
			return SerialTypeZero
		case i == 1:
			return SerialTypeOne
		case i >= -128 && i <= 127:
			return SerialTypeInt8
		case i >= -32768 && i <= 32767:
			return SerialTypeInt16
		case i >= -8388608 && i <= 8388607:
			return SerialTypeInt24
		case i >= -2147483648 && i <= 2147483647:
			return SerialTypeInt32
		case i >= -140737488355328 && i <= 140737488355327:
			return SerialTypeInt48
		}
		return SerialTypeInt64
	case TypeFloat:
		return SerialTypeFloat64
	case TypeText:
		return SerialType(13 + 2*len(val.Text))
	case TypeBlob:
		return SerialType(12 + 2*len(val.Blob))
	}
	return SerialTypeNull
}

// Encode builds a record from values. Text is written as UTF-8.
func Encode(values []Value) ([]byte, error) {
	if len(values) == 0 {
		return nil, errors.New("cannot encode empty record")
	}

	serialTypes := make([]SerialType, len(values))
	serialTypesSize := 0
	bodySize := 0
	for i, val := range values {
		st := SerialTypeFor(val)
		serialTypes[i] = st
		serialTypesSize += varint.Len(uint64(st))
		bodySize += st.Size()
	}

	// The header size varint counts itself, so iterate until stable.
	headerSize := serialTypesSize + 1
	for {
		next := varint.Len(uint64(headerSize)) + serialTypesSize
		if next == headerSize {
			break
		}
		headerSize = next
	}

	buf := make([]byte, 0, headerSize+bodySize)
	buf = varint.Append(buf, uint64(headerSize))
	for _, st := range serialTypes {
		buf = varint.Append(buf, uint64(st))
	}
	for i, val := range values {
		buf = appendValue(buf, val, serialTypes[i])
	}
	return buf, nil
}

func appendValue(buf []byte, val Value, st SerialType) []byte {
	switch st {
	case SerialTypeNull, SerialTypeZero, SerialTypeOne:
		return buf

	case SerialTypeInt8:
		return append(buf, byte(val.Int))

	case SerialTypeInt16:
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], uint16(val.Int))
		return append(buf, tmp[:]...)

	case SerialTypeInt24:
		v := uint32(val.Int)
		return append(buf, byte(v>>16), byte(v>>8), byte(v))

	case SerialTypeInt32:
		var tmp [4]byte
		binary.BigEndian.PutUint32(tmp[:], uint32(val.Int))
		return append(buf, tmp[:]...)

	case SerialTypeInt48:
		v := uint64(val.Int)
		return append(buf,
			byte(v>>40), byte(v>>32), byte(v>>24),
			byte(v>>16), byte(v>>8), byte(v))

	case SerialTypeInt64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(val.Int))
		return append(buf, tmp[:]...)

	case SerialTypeFloat64:
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(val.Float))
		return append(buf, tmp[:]...)

	default:
		if st.IsBlob() {
			return append(buf, val.Blob...)
		}
		return append(buf, val.Text...)
	}
}

// IntValue creates an integer value.
func IntValue(i int64) Value { return Value{Type: TypeInteger, Int: i} }

// FloatValue creates a float value.
func FloatValue(f float64) Value { return Value{Type: TypeFloat, Float: f} }

// TextValue creates a text value.
func TextValue(s string) Value { return Value{Type: TypeText, Text: s} }

// BlobValue creates a blob value.
func BlobValue(b []byte) Value { return Value{Type: TypeBlob, Blob: b} }

// NullValue creates a null value.
func NullValue() Value { return Value{Type: TypeNull, IsNull: true} }
