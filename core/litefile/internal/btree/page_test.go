package btree

import (
	"errors"
	"testing"
)

func TestParsePageHeaderLeafTable(t *testing.T) {
	data := buildPage(t, PageTypeLeafTable, 512, false, 0, [][]byte{
		EncodeTableLeafCell(1, []byte("a")),
		EncodeTableLeafCell(2, []byte("b")),
	})

	h, err := ParsePageHeader(data, 2)
	if err != nil {
		t.Fatalf("ParsePageHeader: %v", err)
	}
	if !h.IsLeaf || !h.IsTable || h.IsIndex || h.IsInterior {
		t.Errorf("derived flags wrong: %+v", h)
	}
	if h.NumCells != 2 {
		t.Errorf("NumCells = %d, want 2", h.NumCells)
	}
	if h.HeaderSize != PageHeaderSizeLeaf {
		t.Errorf("HeaderSize = %d, want %d", h.HeaderSize, PageHeaderSizeLeaf)
	}
}

func TestParsePageHeaderInterior(t *testing.T) {
	data := buildPage(t, PageTypeInteriorTable, 512, false, 7, [][]byte{
		EncodeTableInteriorCell(3, 10),
	})

	h, err := ParsePageHeader(data, 2)
	if err != nil {
		t.Fatalf("ParsePageHeader: %v", err)
	}
	if !h.IsInterior || !h.IsTable {
		t.Errorf("derived flags wrong: %+v", h)
	}
	if h.RightChild != 7 {
		t.Errorf("RightChild = %d, want 7", h.RightChild)
	}
	if h.HeaderSize != PageHeaderSizeInterior {
		t.Errorf("HeaderSize = %d, want %d", h.HeaderSize, PageHeaderSizeInterior)
	}
}

func TestParsePageHeaderPage1Offset(t *testing.T) {
	// Page 1's b-tree header starts after the 100-byte file header.
	data := buildPage(t, PageTypeLeafTable, 512, true, 0, [][]byte{
		EncodeTableLeafCell(1, []byte("x")),
	})

	h, err := ParsePageHeader(data, 1)
	if err != nil {
		t.Fatalf("ParsePageHeader: %v", err)
	}
	if h.NumCells != 1 {
		t.Errorf("NumCells = %d, want 1", h.NumCells)
	}
	if h.CellPtrOffset != FileHeaderSize+PageHeaderSizeLeaf {
		t.Errorf("CellPtrOffset = %d, want %d", h.CellPtrOffset, FileHeaderSize+PageHeaderSizeLeaf)
	}

	// The same bytes parsed as a non-first page must fail: offset zero
	// holds file header bytes, not a page type.
	if _, err := ParsePageHeader(data, 2); !errors.Is(err, ErrUnknownPageType) {
		t.Errorf("err = %v, want ErrUnknownPageType", err)
	}
}

func TestParsePageHeaderUnknownType(t *testing.T) {
	for _, typ := range []byte{0x00, 0x01, 0x03, 0x0b, 0xff} {
		data := make([]byte, 512)
		data[0] = typ
		if _, err := ParsePageHeader(data, 2); !errors.Is(err, ErrUnknownPageType) {
			t.Errorf("type 0x%02x: err = %v, want ErrUnknownPageType", typ, err)
		}
	}
}

func TestParsePageHeaderTruncated(t *testing.T) {
	data := []byte{PageTypeLeafTable, 0, 0}
	if _, err := ParsePageHeader(data, 2); !errors.Is(err, ErrTruncated) {
		t.Errorf("err = %v, want ErrTruncated", err)
	}

	// Interior header needs 12 bytes.
	interior := make([]byte, 10)
	interior[0] = PageTypeInteriorTable
	if _, err := ParsePageHeader(interior, 2); !errors.Is(err, ErrTruncated) {
		t.Errorf("err = %v, want ErrTruncated", err)
	}
}

func TestGetCellPointer(t *testing.T) {
	data := buildPage(t, PageTypeLeafTable, 512, false, 0, [][]byte{
		EncodeTableLeafCell(1, []byte("aa")),
		EncodeTableLeafCell(2, []byte("bb")),
	})

	h, err := ParsePageHeader(data, 2)
	if err != nil {
		t.Fatal(err)
	}

	ptrs, err := h.GetCellPointers(data)
	if err != nil {
		t.Fatalf("GetCellPointers: %v", err)
	}
	if len(ptrs) != 2 {
		t.Fatalf("got %d pointers, want 2", len(ptrs))
	}

	if _, err := h.GetCellPointer(data, 2); err == nil {
		t.Error("expected error for out-of-range cell index")
	}
	if _, err := h.GetCellPointer(data, -1); err == nil {
		t.Error("expected error for negative cell index")
	}
}

func TestPageCell(t *testing.T) {
	data := buildPage(t, PageTypeLeafTable, 512, false, 0, [][]byte{
		EncodeTableLeafCell(42, []byte("hello")),
	})

	page, err := ParsePage(2, data, 512)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}

	cell, err := page.Cell(0)
	if err != nil {
		t.Fatalf("Cell(0): %v", err)
	}
	if cell.Rowid != 42 {
		t.Errorf("Rowid = %d, want 42", cell.Rowid)
	}
	if string(cell.Payload) != "hello" {
		t.Errorf("Payload = %q, want %q", cell.Payload, "hello")
	}
}
