// Package btree decodes SQLite b-tree pages and walks table and index trees
// in key order. All access is read-only.
package btree

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Page type constants (first byte of page header)
const (
	PageTypeInteriorIndex = 0x02 // Interior index b-tree page
	PageTypeInteriorTable = 0x05 // Interior table b-tree page
	PageTypeLeafIndex     = 0x0a // Leaf index b-tree page
	PageTypeLeafTable     = 0x0d // Leaf table b-tree page
)

// Page type flags (bit flags in page type byte)
const (
	PTF_INTKEY   = 0x01 // True if table b-tree (integer key)
	PTF_ZERODATA = 0x02 // True for index b-trees (no data, only keys)
	PTF_LEAFDATA = 0x04 // True if data is stored in leaves
	PTF_LEAF     = 0x08 // True if this is a leaf page
)

// Page header offsets
const (
	PageHeaderOffsetType       = 0 // Page type (1 byte)
	PageHeaderOffsetFreeblock  = 1 // First freeblock offset (2 bytes)
	PageHeaderOffsetNumCells   = 3 // Number of cells (2 bytes)
	PageHeaderOffsetCellStart  = 5 // Start of cell content area (2 bytes)
	PageHeaderOffsetFragmented = 7 // Fragmented free bytes (1 byte)
	PageHeaderOffsetRightChild = 8 // Right-most child pointer (4 bytes, interior only)
)

// Header sizes
const (
	PageHeaderSizeLeaf     = 8   // Leaf pages: 8 bytes
	PageHeaderSizeInterior = 12  // Interior pages: 12 bytes (includes right child pointer)
	FileHeaderSize         = 100 // Database file header on page 1
)

// Common errors
var (
	// ErrUnknownPageType indicates a page type byte outside {2, 5, 10, 13}.
	ErrUnknownPageType = errors.New("unknown b-tree page type")

	// ErrTruncated indicates structural data cut short by page bounds.
	ErrTruncated = errors.New("truncated b-tree data")

	// ErrOverflowChain indicates a broken or cyclic overflow page chain.
	ErrOverflowChain = errors.New("broken overflow chain")

	// ErrCyclicTree indicates a child pointer referring back to a page
	// already on the traversal stack.
	ErrCyclicTree = errors.New("cyclic b-tree structure")
)

// PageHeader is the parsed header of a b-tree page.
type PageHeader struct {
	PageType         byte   // Page type (0x02, 0x05, 0x0a, 0x0d)
	FirstFreeblock   uint16 // Offset to first freeblock (0 if none)
	NumCells         uint16 // Number of cells on this page
	CellContentStart uint16 // Start of cell content area (0 encodes 65536)
	FragmentedBytes  byte   // Number of fragmented free bytes
	RightChild       uint32 // Right-most child page number (interior pages only)

	// Derived properties
	IsLeaf        bool // True if this is a leaf page
	IsInterior    bool // True if this is an interior page
	IsTable       bool // True if this is a table b-tree (intkey)
	IsIndex       bool // True if this is an index b-tree (blob key)
	HeaderSize    int  // Size of page header (8 or 12 bytes)
	CellPtrOffset int  // Offset where cell pointer array starts
}

// ParsePageHeader parses the b-tree page header from raw page data.
// Page 1 carries the 100-byte file header before its b-tree content; that
// offset applies to page 1 only, never to any other page.
func ParsePageHeader(data []byte, pageNum uint32) (*PageHeader, error) {
	offset := 0
	if pageNum == 1 {
		offset = FileHeaderSize
	}
	if len(data) < offset+PageHeaderSizeLeaf {
		return nil, fmt.Errorf("%w: page %d holds %d bytes", ErrTruncated, pageNum, len(data))
	}

	h := &PageHeader{
		PageType:         data[offset+PageHeaderOffsetType],
		FirstFreeblock:   binary.BigEndian.Uint16(data[offset+PageHeaderOffsetFreeblock:]),
		NumCells:         binary.BigEndian.Uint16(data[offset+PageHeaderOffsetNumCells:]),
		CellContentStart: binary.BigEndian.Uint16(data[offset+PageHeaderOffsetCellStart:]),
		FragmentedBytes:  data[offset+PageHeaderOffsetFragmented],
	}

	switch h.PageType {
	case PageTypeInteriorIndex, PageTypeInteriorTable, PageTypeLeafIndex, PageTypeLeafTable:
	default:
		return nil, fmt.Errorf("%w: 0x%02x on page %d", ErrUnknownPageType, h.PageType, pageNum)
	}

	h.IsLeaf = h.PageType&PTF_LEAF != 0
	h.IsInterior = !h.IsLeaf
	h.IsTable = h.PageType&PTF_INTKEY != 0
	h.IsIndex = !h.IsTable

	if h.IsInterior {
		if len(data) < offset+PageHeaderSizeInterior {
			return nil, fmt.Errorf("%w: interior page %d holds %d bytes", ErrTruncated, pageNum, len(data))
		}
		h.RightChild = binary.BigEndian.Uint32(data[offset+PageHeaderOffsetRightChild:])
		h.HeaderSize = PageHeaderSizeInterior
	} else {
		h.HeaderSize = PageHeaderSizeLeaf
	}

	h.CellPtrOffset = offset + h.HeaderSize

	// The freeblock pointer is unused by read-only access but must still be
	// an in-page offset if set.
	if h.FirstFreeblock != 0 && int(h.FirstFreeblock) >= len(data) {
		return nil, fmt.Errorf("%w: freeblock offset %d on page %d", ErrTruncated, h.FirstFreeblock, pageNum)
	}

	return h, nil
}

// GetCellPointer returns the offset of the i-th cell in the page.
func (h *PageHeader) GetCellPointer(data []byte, cellIndex int) (uint16, error) {
	if cellIndex < 0 || cellIndex >= int(h.NumCells) {
		return 0, fmt.Errorf("cell index out of range: %d (max %d)", cellIndex, int(h.NumCells)-1)
	}

	ptrOffset := h.CellPtrOffset + cellIndex*2
	if ptrOffset+2 > len(data) {
		return 0, fmt.Errorf("%w: cell pointer %d past page end", ErrTruncated, cellIndex)
	}

	ptr := binary.BigEndian.Uint16(data[ptrOffset:])
	if int(ptr) >= len(data) {
		return 0, fmt.Errorf("%w: cell offset %d past page end", ErrTruncated, ptr)
	}
	return ptr, nil
}

// GetCellPointers returns all cell pointers in the page.
func (h *PageHeader) GetCellPointers(data []byte) ([]uint16, error) {
	pointers := make([]uint16, h.NumCells)
	for i := 0; i < int(h.NumCells); i++ {
		ptr, err := h.GetCellPointer(data, i)
		if err != nil {
			return nil, err
		}
		pointers[i] = ptr
	}
	return pointers, nil
}

// String returns a string representation of the page header.
func (h *PageHeader) String() string {
	pageTypeStr := "unknown"
	switch h.PageType {
	case PageTypeInteriorIndex:
		pageTypeStr = "interior index"
	case PageTypeInteriorTable:
		pageTypeStr = "interior table"
	case PageTypeLeafIndex:
		pageTypeStr = "leaf index"
	case PageTypeLeafTable:
		pageTypeStr = "leaf table"
	}
	return fmt.Sprintf("PageHeader{type=%s, cells=%d, contentStart=%d, freeblock=%d}",
		pageTypeStr, h.NumCells, h.CellContentStart, h.FirstFreeblock)
}

// Page couples a raw page image with its parsed header.
type Page struct {
	Data       []byte      // Raw page data (read-only view)
	Num        uint32      // 1-based page number
	Header     *PageHeader // Parsed page header
	UsableSize uint32      // Usable bytes per page
}

// ParsePage parses a raw page image into a Page.
func ParsePage(num uint32, data []byte, usableSize uint32) (*Page, error) {
	header, err := ParsePageHeader(data, num)
	if err != nil {
		return nil, err
	}
	return &Page{Data: data, Num: num, Header: header, UsableSize: usableSize}, nil
}

// Cell parses the i-th cell on the page.
func (p *Page) Cell(i int) (*CellInfo, error) {
	offset, err := p.Header.GetCellPointer(p.Data, i)
	if err != nil {
		return nil, err
	}
	cell, err := ParseCell(p.Header.PageType, p.Data[offset:], p.UsableSize)
	if err != nil {
		return nil, fmt.Errorf("page %d cell %d: %w", p.Num, i, err)
	}
	return cell, nil
}
