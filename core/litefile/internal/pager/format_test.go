package pager

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildHeader returns a valid 100-byte database header that individual
// tests then mutate.
func buildHeader(pageSize uint16) []byte {
	h := make([]byte, DatabaseHeaderSize)
	copy(h, MagicHeaderString)
	binary.BigEndian.PutUint16(h[OffsetPageSize:], pageSize)
	h[OffsetFileFormatWrite] = 1
	h[OffsetFileFormatRead] = 1
	h[OffsetMaxPayloadFrac] = 64
	h[OffsetMinPayloadFrac] = 32
	h[OffsetLeafPayloadFrac] = 32
	binary.BigEndian.PutUint32(h[OffsetDatabaseSize:], 1)
	binary.BigEndian.PutUint32(h[OffsetSchemaFormat:], 4)
	binary.BigEndian.PutUint32(h[OffsetTextEncoding:], EncodingUTF8)
	return h
}

func TestParseDatabaseHeader(t *testing.T) {
	data := buildHeader(4096)

	h, err := ParseDatabaseHeader(data)
	if err != nil {
		t.Fatalf("ParseDatabaseHeader: %v", err)
	}
	if h.GetPageSize() != 4096 {
		t.Errorf("page size = %d, want 4096", h.GetPageSize())
	}
	if h.TextEncoding != EncodingUTF8 {
		t.Errorf("text encoding = %d, want %d", h.TextEncoding, EncodingUTF8)
	}
	if err := h.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParseDatabaseHeaderPageSizeOne(t *testing.T) {
	// A stored page size of 1 means 65536.
	data := buildHeader(1)

	h, err := ParseDatabaseHeader(data)
	if err != nil {
		t.Fatalf("ParseDatabaseHeader: %v", err)
	}
	if h.GetPageSize() != 65536 {
		t.Errorf("page size = %d, want 65536", h.GetPageSize())
	}
}

func TestParseDatabaseHeaderBadMagic(t *testing.T) {
	data := buildHeader(4096)
	data[0] = 'X'

	_, err := ParseDatabaseHeader(data)
	if !errors.Is(err, ErrNotDatabase) {
		t.Errorf("err = %v, want ErrNotDatabase", err)
	}
}

func TestParseDatabaseHeaderTooShort(t *testing.T) {
	data := buildHeader(4096)

	_, err := ParseDatabaseHeader(data[:50])
	if !errors.Is(err, ErrNotDatabase) {
		t.Errorf("err = %v, want ErrNotDatabase", err)
	}
}

func TestParseDatabaseHeaderBadPageSize(t *testing.T) {
	tests := []struct {
		name     string
		pageSize uint16
	}{
		{"too small", 256},
		{"not power of two", 1000},
		{"odd", 4097},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildHeader(tt.pageSize)
			_, err := ParseDatabaseHeader(data)
			if !errors.Is(err, ErrCorruptHeader) {
				t.Errorf("err = %v, want ErrCorruptHeader", err)
			}
		})
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte)
	}{
		{"read version", func(h []byte) { h[OffsetFileFormatRead] = 3 }},
		{"max payload frac", func(h []byte) { h[OffsetMaxPayloadFrac] = 63 }},
		{"min payload frac", func(h []byte) { h[OffsetMinPayloadFrac] = 33 }},
		{"leaf payload frac", func(h []byte) { h[OffsetLeafPayloadFrac] = 31 }},
		{"schema format", func(h []byte) {
			binary.BigEndian.PutUint32(h[OffsetSchemaFormat:], 5)
		}},
		{"text encoding", func(h []byte) {
			binary.BigEndian.PutUint32(h[OffsetTextEncoding:], 9)
		}},
		{"reserved space", func(h []byte) {
			// 512 byte pages leave less than 480 usable bytes once
			// reserved space is this large.
			binary.BigEndian.PutUint16(h[OffsetPageSize:], 512)
			h[OffsetReservedSpace] = 200
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildHeader(4096)
			tt.mutate(data)
			h, err := ParseDatabaseHeader(data)
			if err != nil {
				if !errors.Is(err, ErrCorruptHeader) {
					t.Fatalf("parse err = %v, want ErrCorruptHeader", err)
				}
				return
			}
			if err := h.Validate(); !errors.Is(err, ErrCorruptHeader) {
				t.Errorf("Validate err = %v, want ErrCorruptHeader", err)
			}
		})
	}
}

func TestUsableSize(t *testing.T) {
	data := buildHeader(4096)
	data[OffsetReservedSpace] = 32

	h, err := ParseDatabaseHeader(data)
	if err != nil {
		t.Fatalf("ParseDatabaseHeader: %v", err)
	}
	if got := h.UsableSize(); got != 4064 {
		t.Errorf("UsableSize = %d, want 4064", got)
	}
}
