// Package utf converts UTF-16 text stored in database files to Go strings.
package utf

import "unicode/utf8"

// ReplacementChar is substituted for malformed sequences.
const ReplacementChar = '�'

// UTF-16 surrogate pair constants
const (
	HighSurrogateMin = 0xD800
	HighSurrogateMax = 0xDBFF
	LowSurrogateMin  = 0xDC00
	LowSurrogateMax  = 0xDFFF
	SurrogateOffset  = 0x10000
)

// decodeRuneLE decodes one UTF-16 little-endian code point.
// It returns the rune and the number of bytes consumed (2 or 4).
func decodeRuneLE(data []byte) (r rune, size int) {
	if len(data) < 2 {
		return ReplacementChar, 0
	}

	c := uint32(data[0]) | uint32(data[1])<<8

	if c >= HighSurrogateMin && c <= HighSurrogateMax {
		if len(data) < 4 {
			return ReplacementChar, 2
		}
		c2 := uint32(data[2]) | uint32(data[3])<<8
		if c2 >= LowSurrogateMin && c2 <= LowSurrogateMax {
			r = rune(((c & 0x3FF) << 10) + (c2 & 0x3FF) + SurrogateOffset)
			return r, 4
		}
		// Unpaired high surrogate
		return ReplacementChar, 2
	}
	if c >= LowSurrogateMin && c <= LowSurrogateMax {
		// Unpaired low surrogate
		return ReplacementChar, 2
	}

	return rune(c), 2
}

// decodeRuneBE decodes one UTF-16 big-endian code point.
// It returns the rune and the number of bytes consumed (2 or 4).
func decodeRuneBE(data []byte) (r rune, size int) {
	if len(data) < 2 {
		return ReplacementChar, 0
	}

	c := uint32(data[0])<<8 | uint32(data[1])

	if c >= HighSurrogateMin && c <= HighSurrogateMax {
		if len(data) < 4 {
			return ReplacementChar, 2
		}
		c2 := uint32(data[2])<<8 | uint32(data[3])
		if c2 >= LowSurrogateMin && c2 <= LowSurrogateMax {
			r = rune(((c & 0x3FF) << 10) + (c2 & 0x3FF) + SurrogateOffset)
			return r, 4
		}
		return ReplacementChar, 2
	}
	if c >= LowSurrogateMin && c <= LowSurrogateMax {
		return ReplacementChar, 2
	}

	return rune(c), 2
}

// DecodeUTF16LE converts UTF-16 little-endian bytes to a string.
// A trailing odd byte is dropped.
func DecodeUTF16LE(data []byte) string {
	return decodeUTF16(data, decodeRuneLE)
}

// DecodeUTF16BE converts UTF-16 big-endian bytes to a string.
// A trailing odd byte is dropped.
func DecodeUTF16BE(data []byte) string {
	return decodeUTF16(data, decodeRuneBE)
}

func decodeUTF16(data []byte, decode func([]byte) (rune, int)) string {
	if len(data) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		r, size := decode(data[i:])
		if size == 0 {
			break
		}
		buf = utf8.AppendRune(buf, r)
		i += size
	}
	return string(buf)
}

// EncodeUTF16LE converts a string to UTF-16 little-endian bytes.
func EncodeUTF16LE(s string) []byte {
	return encodeUTF16(s, false)
}

// EncodeUTF16BE converts a string to UTF-16 big-endian bytes.
func EncodeUTF16BE(s string) []byte {
	return encodeUTF16(s, true)
}

func encodeUTF16(s string, bigEndian bool) []byte {
	buf := make([]byte, 0, len(s)*2)
	for _, r := range s {
		if r >= SurrogateOffset {
			v := r - SurrogateOffset
			high := uint16(HighSurrogateMin + (v >> 10))
			low := uint16(LowSurrogateMin + (v & 0x3FF))
			buf = appendUnit(buf, high, bigEndian)
			buf = appendUnit(buf, low, bigEndian)
			continue
		}
		buf = appendUnit(buf, uint16(r), bigEndian)
	}
	return buf
}

func appendUnit(buf []byte, c uint16, bigEndian bool) []byte {
	if bigEndian {
		return append(buf, byte(c>>8), byte(c))
	}
	return append(buf, byte(c), byte(c>>8))
}
