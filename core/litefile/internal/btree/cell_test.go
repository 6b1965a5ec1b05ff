package btree

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/FocuswithJustin/litefile/core/litefile/internal/varint"
)

func TestParseTableLeafCell(t *testing.T) {
	cell := EncodeTableLeafCell(123, []byte("payload"))

	info, err := ParseCell(PageTypeLeafTable, cell, 512)
	if err != nil {
		t.Fatalf("ParseCell: %v", err)
	}
	if info.Rowid != 123 {
		t.Errorf("Rowid = %d, want 123", info.Rowid)
	}
	if string(info.Payload) != "payload" {
		t.Errorf("Payload = %q", info.Payload)
	}
	if info.HasOverflow() {
		t.Error("small payload should not overflow")
	}
	if info.PayloadSize != 7 || info.LocalPayload != 7 {
		t.Errorf("sizes = %d/%d, want 7/7", info.PayloadSize, info.LocalPayload)
	}
}

func TestParseTableInteriorCell(t *testing.T) {
	cell := EncodeTableInteriorCell(99, 4567)

	info, err := ParseCell(PageTypeInteriorTable, cell, 512)
	if err != nil {
		t.Fatalf("ParseCell: %v", err)
	}
	if info.ChildPage != 99 {
		t.Errorf("ChildPage = %d, want 99", info.ChildPage)
	}
	if info.Rowid != 4567 {
		t.Errorf("Rowid = %d, want 4567", info.Rowid)
	}
}

func TestParseIndexCells(t *testing.T) {
	key := []byte("index key bytes")

	leaf, err := ParseCell(PageTypeLeafIndex, EncodeIndexLeafCell(key), 512)
	if err != nil {
		t.Fatalf("leaf: %v", err)
	}
	if string(leaf.Payload) != string(key) {
		t.Errorf("leaf payload = %q", leaf.Payload)
	}

	interior, err := ParseCell(PageTypeInteriorIndex, EncodeIndexInteriorCell(12, key), 512)
	if err != nil {
		t.Fatalf("interior: %v", err)
	}
	if interior.ChildPage != 12 {
		t.Errorf("ChildPage = %d, want 12", interior.ChildPage)
	}
	if string(interior.Payload) != string(key) {
		t.Errorf("interior payload = %q", interior.Payload)
	}
}

func TestParseCellUnknownType(t *testing.T) {
	_, err := ParseCell(0x07, []byte{0, 0, 0, 0}, 512)
	if !errors.Is(err, ErrUnknownPageType) {
		t.Errorf("err = %v, want ErrUnknownPageType", err)
	}
}

func TestParseCellTruncated(t *testing.T) {
	tests := []struct {
		name     string
		pageType byte
		data     []byte
	}{
		{"empty table leaf", PageTypeLeafTable, nil},
		{"table leaf missing rowid", PageTypeLeafTable, []byte{0x05}},
		{"table leaf short payload", PageTypeLeafTable, []byte{0x05, 0x01, 'a'}},
		{"table interior short child", PageTypeInteriorTable, []byte{0, 0, 1}},
		{"table interior missing rowid", PageTypeInteriorTable, []byte{0, 0, 0, 1}},
		{"index leaf short payload", PageTypeLeafIndex, []byte{0x09, 'a', 'b'}},
		{"index interior short child", PageTypeInteriorIndex, []byte{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCell(tt.pageType, tt.data, 512)
			if !errors.Is(err, ErrTruncated) {
				t.Errorf("err = %v, want ErrTruncated", err)
			}
		})
	}
}

func TestParseCellPayloadSizeOverflow(t *testing.T) {
	// A payload-size varint beyond 32 bits must fail rather than be
	// silently narrowed to a small value.
	huge := uint64(1)<<32 + 100

	tableCell := varint.Append(nil, huge)
	tableCell = varint.Append(tableCell, 1) // rowid
	if _, err := ParseCell(PageTypeLeafTable, tableCell, 512); !errors.Is(err, ErrTruncated) {
		t.Errorf("table leaf err = %v, want ErrTruncated", err)
	}

	indexCell := varint.Append(nil, huge)
	if _, err := ParseCell(PageTypeLeafIndex, indexCell, 512); !errors.Is(err, ErrTruncated) {
		t.Errorf("index leaf err = %v, want ErrTruncated", err)
	}
}

// encodeSpilledTableLeafCell builds a table leaf cell whose payload exceeds
// the local threshold, keeping only the computed local prefix on the page.
func encodeSpilledTableLeafCell(rowid int64, payload []byte, usableSize, overflowPage uint32) []byte {
	buf := varint.Append(nil, uint64(len(payload)))
	buf = varint.Append(buf, uint64(rowid))

	local := spilledLocalSize(uint32(len(payload)), usableSize, maxLocalTableLeaf(usableSize))
	buf = append(buf, payload[:local]...)

	var ptr [4]byte
	binary.BigEndian.PutUint32(ptr[:], overflowPage)
	return append(buf, ptr[:]...)
}

func TestParseTableLeafCellWithOverflow(t *testing.T) {
	const usable = 512
	payload := make([]byte, 2000)
	for i := range payload {
		payload[i] = byte(i)
	}

	cell := encodeSpilledTableLeafCell(5, payload, usable, 42)
	info, err := ParseCell(PageTypeLeafTable, cell, usable)
	if err != nil {
		t.Fatalf("ParseCell: %v", err)
	}
	if !info.HasOverflow() {
		t.Fatal("expected overflow")
	}
	if info.OverflowPage != 42 {
		t.Errorf("OverflowPage = %d, want 42", info.OverflowPage)
	}
	if info.PayloadSize != 2000 {
		t.Errorf("PayloadSize = %d, want 2000", info.PayloadSize)
	}
	if uint32(len(info.Payload)) != info.LocalPayload {
		t.Errorf("local slice %d bytes, header says %d", len(info.Payload), info.LocalPayload)
	}
	if info.LocalPayload >= 2000 || info.LocalPayload == 0 {
		t.Errorf("LocalPayload = %d, want a proper prefix", info.LocalPayload)
	}
}

func TestSpillThresholds(t *testing.T) {
	const usable = 512

	// Table leaves keep up to usable-35 bytes locally.
	if got := maxLocalTableLeaf(usable); got != 477 {
		t.Errorf("maxLocalTableLeaf = %d, want 477", got)
	}
	// Index pages spill far earlier.
	if got := maxLocalIndex(usable); got != 102 {
		t.Errorf("maxLocalIndex = %d, want 102", got)
	}
	if got := minLocal(usable); got != 39 {
		t.Errorf("minLocal = %d, want 39", got)
	}

	// The local portion of a spilled payload never exceeds maxLocal and
	// never drops below minLocal.
	for _, size := range []uint32{478, 500, 1000, 5000, 100000} {
		local := spilledLocalSize(size, usable, maxLocalTableLeaf(usable))
		if local < minLocal(usable) || local > maxLocalTableLeaf(usable) {
			t.Errorf("payload %d: local %d outside [%d, %d]",
				size, local, minLocal(usable), maxLocalTableLeaf(usable))
		}
	}
}
