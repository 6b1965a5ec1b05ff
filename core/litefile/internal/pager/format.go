// Package pager implements read-only access to SQLite database files: it
// validates the 100-byte file header and maps page numbers to fixed-size
// byte windows of the file.
package pager

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// File format constants
const (
	// DatabaseHeaderSize is the size of the database file header (first 100 bytes).
	DatabaseHeaderSize = 100

	// MinPageSize is the minimum allowed page size (512 bytes).
	MinPageSize = 512

	// MaxPageSize is the maximum allowed page size (65536 bytes).
	MaxPageSize = 65536

	// MagicHeaderString is the magic header string for SQLite 3 database files.
	// Must be exactly 16 bytes including the null terminator.
	MagicHeaderString = "SQLite format 3\x00"
)

// Database header byte offsets
const (
	// OffsetMagic is the offset of the magic header string (16 bytes).
	OffsetMagic = 0

	// OffsetPageSize is the offset of the page size field (2 bytes, big-endian).
	// A value of 1 represents 65536.
	OffsetPageSize = 16

	// OffsetFileFormatWrite is the file format write version (1 byte).
	OffsetFileFormatWrite = 18

	// OffsetFileFormatRead is the file format read version (1 byte).
	OffsetFileFormatRead = 19

	// OffsetReservedSpace is the reserved space at end of each page (1 byte).
	OffsetReservedSpace = 20

	// OffsetMaxPayloadFrac is the maximum embedded payload fraction (1 byte).
	OffsetMaxPayloadFrac = 21

	// OffsetMinPayloadFrac is the minimum embedded payload fraction (1 byte).
	OffsetMinPayloadFrac = 22

	// OffsetLeafPayloadFrac is the leaf payload fraction (1 byte).
	OffsetLeafPayloadFrac = 23

	// OffsetFileChangeCounter is the file change counter (4 bytes, big-endian).
	OffsetFileChangeCounter = 24

	// OffsetDatabaseSize is the database size in pages (4 bytes, big-endian).
	OffsetDatabaseSize = 28

	// OffsetFreelistTrunk is the first freelist trunk page (4 bytes, big-endian).
	OffsetFreelistTrunk = 32

	// OffsetFreelistCount is the total number of freelist pages (4 bytes, big-endian).
	OffsetFreelistCount = 36

	// OffsetSchemaCookie is the schema cookie (4 bytes, big-endian).
	OffsetSchemaCookie = 40

	// OffsetSchemaFormat is the schema format number (4 bytes, big-endian).
	OffsetSchemaFormat = 44

	// OffsetDefaultCacheSize is the default page cache size (4 bytes, big-endian).
	OffsetDefaultCacheSize = 48

	// OffsetLargestRootPage is the largest root b-tree page (4 bytes, big-endian).
	OffsetLargestRootPage = 52

	// OffsetTextEncoding is the database text encoding (4 bytes, big-endian).
	// 1 = UTF-8, 2 = UTF-16le, 3 = UTF-16be
	OffsetTextEncoding = 56

	// OffsetUserVersion is the user version (4 bytes, big-endian).
	OffsetUserVersion = 60

	// OffsetIncrementalVacuum is the incremental vacuum mode (4 bytes, big-endian).
	OffsetIncrementalVacuum = 64

	// OffsetApplicationID is the application ID (4 bytes, big-endian).
	OffsetApplicationID = 68

	// OffsetReserved is the reserved space (20 bytes, must be zero).
	OffsetReserved = 72

	// OffsetVersionValidFor is the version-valid-for number (4 bytes, big-endian).
	OffsetVersionValidFor = 92

	// OffsetSQLiteVersion is the SQLite version number (4 bytes, big-endian).
	OffsetSQLiteVersion = 96
)

// Text encoding values
const (
	// EncodingUTF8 indicates UTF-8 text encoding.
	EncodingUTF8 = 1

	// EncodingUTF16LE indicates UTF-16 little-endian text encoding.
	EncodingUTF16LE = 2

	// EncodingUTF16BE indicates UTF-16 big-endian text encoding.
	EncodingUTF16BE = 3
)

// Common errors
var (
	// ErrNotDatabase indicates the file does not start with the SQLite magic.
	ErrNotDatabase = errors.New("not a sqlite database")

	// ErrCorruptHeader indicates a header field holds an impossible value.
	ErrCorruptHeader = errors.New("corrupt database header")

	// ErrPageOutOfRange indicates a page number of 0 or beyond the page count.
	ErrPageOutOfRange = errors.New("page number out of range")
)

// DatabaseHeader represents the 100-byte header at the beginning of every
// SQLite database file.
type DatabaseHeader struct {
	// Magic is the magic header string ("SQLite format 3\x00")
	Magic [16]byte

	// PageSize is the stored page size field. A value of 1 represents 65536;
	// use GetPageSize for the actual size.
	PageSize uint16

	// FileFormatWrite is the file format write version (1 or 2).
	FileFormatWrite uint8

	// FileFormatRead is the file format read version (1 or 2).
	FileFormatRead uint8

	// ReservedSpace is the number of bytes of unused space at the end of each page.
	ReservedSpace uint8

	// MaxPayloadFrac is the maximum embedded payload fraction (must be 64).
	MaxPayloadFrac uint8

	// MinPayloadFrac is the minimum embedded payload fraction (must be 32).
	MinPayloadFrac uint8

	// LeafPayloadFrac is the leaf payload fraction (must be 32).
	LeafPayloadFrac uint8

	// FileChangeCounter is incremented whenever the database file is modified.
	FileChangeCounter uint32

	// DatabaseSize is the size of the database file in pages. May be zero or
	// stale in files written by very old SQLite versions.
	DatabaseSize uint32

	// FreelistTrunk is the page number of the first freelist trunk page.
	FreelistTrunk uint32

	// FreelistCount is the total number of freelist pages.
	FreelistCount uint32

	// SchemaCookie is incremented whenever the database schema changes.
	SchemaCookie uint32

	// SchemaFormat is the schema format number (1, 2, 3, or 4).
	SchemaFormat uint32

	// DefaultCacheSize is the suggested cache size in pages.
	DefaultCacheSize uint32

	// LargestRootPage is the largest root b-tree page number (for auto-vacuum).
	LargestRootPage uint32

	// TextEncoding is the database text encoding (1=UTF-8, 2=UTF-16le, 3=UTF-16be).
	TextEncoding uint32

	// UserVersion is a user-defined version number.
	UserVersion uint32

	// IncrementalVacuum is non-zero if incremental vacuum is enabled.
	IncrementalVacuum uint32

	// ApplicationID is a user-defined application ID.
	ApplicationID uint32

	// Reserved is 20 bytes of reserved space.
	Reserved [20]byte

	// VersionValidFor is the version-valid-for number.
	VersionValidFor uint32

	// SQLiteVersion is the SQLite version number that wrote the database.
	SQLiteVersion uint32
}

// ParseDatabaseHeader parses the 100-byte database header from raw bytes.
func ParseDatabaseHeader(data []byte) (*DatabaseHeader, error) {
	if len(data) < DatabaseHeaderSize {
		return nil, fmt.Errorf("%w: file shorter than %d-byte header", ErrNotDatabase, DatabaseHeaderSize)
	}

	header := &DatabaseHeader{}

	copy(header.Magic[:], data[OffsetMagic:OffsetMagic+16])
	if string(header.Magic[:]) != MagicHeaderString {
		return nil, fmt.Errorf("%w: bad magic %q", ErrNotDatabase, header.Magic)
	}

	header.PageSize = binary.BigEndian.Uint16(data[OffsetPageSize : OffsetPageSize+2])
	if !isValidPageSize(int(header.PageSize)) {
		return nil, fmt.Errorf("%w: page size %d", ErrCorruptHeader, header.PageSize)
	}

	header.FileFormatWrite = data[OffsetFileFormatWrite]
	header.FileFormatRead = data[OffsetFileFormatRead]
	header.ReservedSpace = data[OffsetReservedSpace]
	header.MaxPayloadFrac = data[OffsetMaxPayloadFrac]
	header.MinPayloadFrac = data[OffsetMinPayloadFrac]
	header.LeafPayloadFrac = data[OffsetLeafPayloadFrac]

	header.FileChangeCounter = binary.BigEndian.Uint32(data[OffsetFileChangeCounter : OffsetFileChangeCounter+4])
	header.DatabaseSize = binary.BigEndian.Uint32(data[OffsetDatabaseSize : OffsetDatabaseSize+4])
	header.FreelistTrunk = binary.BigEndian.Uint32(data[OffsetFreelistTrunk : OffsetFreelistTrunk+4])
	header.FreelistCount = binary.BigEndian.Uint32(data[OffsetFreelistCount : OffsetFreelistCount+4])
	header.SchemaCookie = binary.BigEndian.Uint32(data[OffsetSchemaCookie : OffsetSchemaCookie+4])
	header.SchemaFormat = binary.BigEndian.Uint32(data[OffsetSchemaFormat : OffsetSchemaFormat+4])
	header.DefaultCacheSize = binary.BigEndian.Uint32(data[OffsetDefaultCacheSize : OffsetDefaultCacheSize+4])
	header.LargestRootPage = binary.BigEndian.Uint32(data[OffsetLargestRootPage : OffsetLargestRootPage+4])
	header.TextEncoding = binary.BigEndian.Uint32(data[OffsetTextEncoding : OffsetTextEncoding+4])
	header.UserVersion = binary.BigEndian.Uint32(data[OffsetUserVersion : OffsetUserVersion+4])
	header.IncrementalVacuum = binary.BigEndian.Uint32(data[OffsetIncrementalVacuum : OffsetIncrementalVacuum+4])
	header.ApplicationID = binary.BigEndian.Uint32(data[OffsetApplicationID : OffsetApplicationID+4])
	header.VersionValidFor = binary.BigEndian.Uint32(data[OffsetVersionValidFor : OffsetVersionValidFor+4])
	header.SQLiteVersion = binary.BigEndian.Uint32(data[OffsetSQLiteVersion : OffsetSQLiteVersion+4])

	copy(header.Reserved[:], data[OffsetReserved:OffsetReserved+20])

	return header, nil
}

// isValidPageSize reports whether size is a power of 2 between 512 and 65536
// inclusive, or the special value 1 (which encodes 65536).
func isValidPageSize(size int) bool {
	if size == 1 {
		return true
	}
	if size < MinPageSize || size > MaxPageSize {
		return false
	}
	return size&(size-1) == 0
}

// GetPageSize returns the actual page size, handling the special case where
// a stored value of 1 means 65536.
func (h *DatabaseHeader) GetPageSize() int {
	if h.PageSize == 1 {
		return MaxPageSize
	}
	return int(h.PageSize)
}

// UsableSize returns the number of usable bytes on each page: the page size
// minus the per-page reserved region.
func (h *DatabaseHeader) UsableSize() int {
	return h.GetPageSize() - int(h.ReservedSpace)
}

// Validate performs validation checks beyond what ParseDatabaseHeader enforces.
func (h *DatabaseHeader) Validate() error {
	if h.FileFormatRead != 1 && h.FileFormatRead != 2 {
		return fmt.Errorf("%w: file format read version %d", ErrCorruptHeader, h.FileFormatRead)
	}
	if h.MaxPayloadFrac != 64 {
		return fmt.Errorf("%w: max payload fraction %d", ErrCorruptHeader, h.MaxPayloadFrac)
	}
	if h.MinPayloadFrac != 32 {
		return fmt.Errorf("%w: min payload fraction %d", ErrCorruptHeader, h.MinPayloadFrac)
	}
	if h.LeafPayloadFrac != 32 {
		return fmt.Errorf("%w: leaf payload fraction %d", ErrCorruptHeader, h.LeafPayloadFrac)
	}
	if h.SchemaFormat > 4 {
		return fmt.Errorf("%w: schema format %d", ErrCorruptHeader, h.SchemaFormat)
	}
	if h.TextEncoding != 0 && (h.TextEncoding < EncodingUTF8 || h.TextEncoding > EncodingUTF16BE) {
		return fmt.Errorf("%w: text encoding %d", ErrCorruptHeader, h.TextEncoding)
	}
	// Usable size below 480 cannot hold a well-formed b-tree page.
	if h.UsableSize() < 480 {
		return fmt.Errorf("%w: reserved space %d leaves unusable pages", ErrCorruptHeader, h.ReservedSpace)
	}
	return nil
}
