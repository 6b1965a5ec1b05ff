// Package varint implements SQLite's variable-length integer encoding.
//
// A varint is 1 to 9 bytes long, big-endian. The lower 7 bits of each of
// the first 8 bytes carry data, with the high bit set on every byte except
// the last. If a 9th byte is reached it contributes all 8 bits and is never
// checked for a continuation flag.
package varint

import "errors"

// MaxLen is the maximum encoded length of a varint.
const MaxLen = 9

// ErrTruncated is returned when the buffer ends before a terminating byte
// and the 9-byte cap has not been reached.
var ErrTruncated = errors.New("truncated varint")

// Get reads a varint from p and returns the value and the number of bytes
// consumed (1 to 9).
func Get(p []byte) (uint64, int, error) {
	if len(p) == 0 {
		return 0, 0, ErrTruncated
	}

	// Fast path for 1-byte case
	if p[0] < 0x80 {
		return uint64(p[0]), 1, nil
	}

	// Fast path for 2-byte case
	if len(p) > 1 && p[1] < 0x80 {
		return (uint64(p[0]&0x7f) << 7) | uint64(p[1]), 2, nil
	}

	var v uint64
	for i := 0; i < MaxLen && i < len(p); i++ {
		b := p[i]
		if i < 8 {
			v = (v << 7) | uint64(b&0x7f)
			if b&0x80 == 0 {
				return v, i + 1, nil
			}
		} else {
			// 9th byte uses all 8 bits
			v = (v << 8) | uint64(b)
			return v, 9, nil
		}
	}
	return 0, 0, ErrTruncated
}

// Put writes v to p as a varint and returns the number of bytes written.
// p must have room for Len(v) bytes.
func Put(p []byte, v uint64) int {
	if v <= 0x7f {
		p[0] = byte(v)
		return 1
	}
	if v <= 0x3fff {
		p[0] = byte((v>>7)&0x7f) | 0x80
		p[1] = byte(v & 0x7f)
		return 2
	}

	if v&(uint64(0xff000000)<<32) != 0 {
		// 9-byte case: the last byte holds all 8 low bits
		p[8] = byte(v)
		v >>= 8
		for i := 7; i >= 0; i-- {
			p[i] = byte(v&0x7f) | 0x80
			v >>= 7
		}
		return 9
	}

	n := Len(v)
	for i := 0; i < n; i++ {
		shift := uint((n - 1 - i) * 7)
		b := byte((v >> shift) & 0x7f)
		if i < n-1 {
			b |= 0x80
		}
		p[i] = b
	}
	return n
}

// Append appends the varint encoding of v to buf.
func Append(buf []byte, v uint64) []byte {
	var tmp [MaxLen]byte
	n := Put(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// Len returns the number of bytes required to encode v.
func Len(v uint64) int {
	switch {
	case v <= 0x7f:
		return 1
	case v <= 0x3fff:
		return 2
	case v <= 0x1fffff:
		return 3
	case v <= 0xfffffff:
		return 4
	case v <= 0x7ffffffff:
		return 5
	case v <= 0x3ffffffffff:
		return 6
	case v <= 0x1ffffffffffff:
		return 7
	case v <= 0xffffffffffffff:
		return 8
	}
	return 9
}
