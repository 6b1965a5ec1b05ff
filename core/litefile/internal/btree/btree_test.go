package btree

import (
	"encoding/binary"
	"testing"
)

// fakeReader serves pages from a map, standing in for the pager.
type fakeReader struct {
	pages      map[uint32][]byte
	pageSize   uint32
	usableSize uint32
}

func newFakeReader(pageSize uint32) *fakeReader {
	return &fakeReader{
		pages:      make(map[uint32][]byte),
		pageSize:   pageSize,
		usableSize: pageSize,
	}
}

func (f *fakeReader) ReadPage(pgno uint32) ([]byte, error) {
	data, ok := f.pages[pgno]
	if !ok {
		return nil, ErrTruncated
	}
	return data, nil
}

func (f *fakeReader) PageCount() uint32 {
	var max uint32
	for pgno := range f.pages {
		if pgno > max {
			max = pgno
		}
	}
	return max
}

func (f *fakeReader) UsableSize() uint32 { return f.usableSize }

// buildPage assembles a b-tree page from pre-encoded cells. Cell content is
// packed at the end of the page with the pointer array after the header,
// matching the on-disk layout.
func buildPage(t *testing.T, pageType byte, pageSize int, page1 bool, rightChild uint32, cells [][]byte) []byte {
	t.Helper()

	data := make([]byte, pageSize)
	offset := 0
	if page1 {
		offset = FileHeaderSize
	}

	headerSize := PageHeaderSizeLeaf
	interior := pageType == PageTypeInteriorTable || pageType == PageTypeInteriorIndex
	if interior {
		headerSize = PageHeaderSizeInterior
	}

	data[offset+PageHeaderOffsetType] = pageType
	binary.BigEndian.PutUint16(data[offset+PageHeaderOffsetNumCells:], uint16(len(cells)))
	if interior {
		binary.BigEndian.PutUint32(data[offset+PageHeaderOffsetRightChild:], rightChild)
	}

	content := pageSize
	ptrOffset := offset + headerSize
	for _, cell := range cells {
		content -= len(cell)
		if content < ptrOffset+2 {
			t.Fatalf("cells do not fit in %d byte page", pageSize)
		}
		copy(data[content:], cell)
		binary.BigEndian.PutUint16(data[ptrOffset:], uint16(content))
		ptrOffset += 2
	}
	binary.BigEndian.PutUint16(data[offset+PageHeaderOffsetCellStart:], uint16(content))

	return data
}

// addLeafTablePage builds a table leaf page holding the given rowid/payload
// pairs and installs it in the reader.
func (f *fakeReader) addLeafTablePage(t *testing.T, pgno uint32, rows map[int64][]byte, order []int64) {
	t.Helper()
	var cells [][]byte
	for _, rowid := range order {
		cells = append(cells, EncodeTableLeafCell(rowid, rows[rowid]))
	}
	f.pages[pgno] = buildPage(t, PageTypeLeafTable, int(f.pageSize), pgno == 1, 0, cells)
}
