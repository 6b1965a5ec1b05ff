package btree

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/FocuswithJustin/litefile/core/litefile/internal/varint"
)

// CellInfo contains parsed information about a b-tree cell.
type CellInfo struct {
	Rowid        int64  // Integer key (table b-trees only)
	Payload      []byte // Locally stored payload bytes
	PayloadSize  uint32 // Total payload bytes including overflow
	LocalPayload uint32 // Payload bytes stored on this page
	OverflowPage uint32 // First overflow page number (0 if none)
	ChildPage    uint32 // Left child page number (interior pages only)
}

// HasOverflow reports whether part of the payload lives on overflow pages.
func (c *CellInfo) HasOverflow() bool { return c.OverflowPage != 0 }

// ParseCell parses a cell from a b-tree page. cellData starts at the cell's
// offset and extends to the end of the page.
func ParseCell(pageType byte, cellData []byte, usableSize uint32) (*CellInfo, error) {
	switch pageType {
	case PageTypeLeafTable:
		return parseTableLeafCell(cellData, usableSize)
	case PageTypeInteriorTable:
		return parseTableInteriorCell(cellData)
	case PageTypeLeafIndex:
		return parseIndexCell(cellData, usableSize, false)
	case PageTypeInteriorIndex:
		return parseIndexCell(cellData, usableSize, true)
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownPageType, pageType)
	}
}

// parseTableLeafCell parses a table leaf cell.
// Format: varint(payload_size), varint(rowid), payload, [4-byte overflow page]
func parseTableLeafCell(cellData []byte, usableSize uint32) (*CellInfo, error) {
	info := &CellInfo{}
	offset := 0

	payloadSize, n, err := varint.Get(cellData)
	if err != nil {
		return nil, fmt.Errorf("%w: payload size", ErrTruncated)
	}
	if payloadSize > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload size %d exceeds format limit", ErrTruncated, payloadSize)
	}
	info.PayloadSize = uint32(payloadSize)
	offset += n

	rowid, n, err := varint.Get(cellData[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: rowid", ErrTruncated)
	}
	info.Rowid = int64(rowid)
	offset += n

	return finishPayloadCell(info, cellData, offset, usableSize, maxLocalTableLeaf(usableSize))
}

// parseTableInteriorCell parses a table interior cell.
// Format: 4-byte child page number, varint(rowid)
func parseTableInteriorCell(cellData []byte) (*CellInfo, error) {
	if len(cellData) < 4 {
		return nil, fmt.Errorf("%w: interior cell", ErrTruncated)
	}

	info := &CellInfo{}
	info.ChildPage = binary.BigEndian.Uint32(cellData[0:4])

	rowid, _, err := varint.Get(cellData[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: rowid", ErrTruncated)
	}
	info.Rowid = int64(rowid)
	return info, nil
}

// parseIndexCell parses an index leaf or interior cell.
// Leaf format:     varint(payload_size), payload, [overflow page]
// Interior format: 4-byte child page number, varint(payload_size), payload, [overflow page]
func parseIndexCell(cellData []byte, usableSize uint32, interior bool) (*CellInfo, error) {
	info := &CellInfo{}
	offset := 0

	if interior {
		if len(cellData) < 4 {
			return nil, fmt.Errorf("%w: interior cell", ErrTruncated)
		}
		info.ChildPage = binary.BigEndian.Uint32(cellData[0:4])
		offset = 4
	}

	payloadSize, n, err := varint.Get(cellData[offset:])
	if err != nil {
		return nil, fmt.Errorf("%w: payload size", ErrTruncated)
	}
	if payloadSize > math.MaxUint32 {
		return nil, fmt.Errorf("%w: payload size %d exceeds format limit", ErrTruncated, payloadSize)
	}
	info.PayloadSize = uint32(payloadSize)
	offset += n

	return finishPayloadCell(info, cellData, offset, usableSize, maxLocalIndex(usableSize))
}

// finishPayloadCell computes the locally stored payload slice and, when the
// payload spills, the trailing overflow page pointer.
func finishPayloadCell(info *CellInfo, cellData []byte, offset int, usableSize, maxLocal uint32) (*CellInfo, error) {
	if info.PayloadSize <= maxLocal {
		info.LocalPayload = info.PayloadSize
		if offset+int(info.LocalPayload) > len(cellData) {
			return nil, fmt.Errorf("%w: payload", ErrTruncated)
		}
		info.Payload = cellData[offset : offset+int(info.LocalPayload)]
		return info, nil
	}

	info.LocalPayload = spilledLocalSize(info.PayloadSize, usableSize, maxLocal)
	end := offset + int(info.LocalPayload)
	if end+4 > len(cellData) {
		return nil, fmt.Errorf("%w: payload with overflow pointer", ErrTruncated)
	}
	info.Payload = cellData[offset:end]
	info.OverflowPage = binary.BigEndian.Uint32(cellData[end:])
	if info.OverflowPage == 0 {
		return nil, fmt.Errorf("%w: zero first overflow page", ErrOverflowChain)
	}
	return info, nil
}

// maxLocalTableLeaf is the largest payload a table leaf cell stores entirely
// on its page: usable size minus 35.
func maxLocalTableLeaf(usableSize uint32) uint32 {
	return usableSize - 35
}

// maxLocalIndex is the largest payload an index cell stores entirely on its
// page: (usable-12)*64/255 - 23.
func maxLocalIndex(usableSize uint32) uint32 {
	return (usableSize-12)*64/255 - 23
}

// minLocal is the minimum payload kept on the page when a cell spills:
// (usable-12)*32/255 - 23.
func minLocal(usableSize uint32) uint32 {
	return (usableSize-12)*32/255 - 23
}

// spilledLocalSize computes how many payload bytes stay on the page when the
// total exceeds maxLocal, per the file-format surplus rule.
func spilledLocalSize(payloadSize, usableSize, maxLocal uint32) uint32 {
	min := minLocal(usableSize)
	surplus := min + (payloadSize-min)%(usableSize-4)
	if surplus <= maxLocal {
		return surplus
	}
	return min
}

// String returns a string representation of the cell info.
func (c *CellInfo) String() string {
	return fmt.Sprintf("CellInfo{rowid=%d, payloadSize=%d, localPayload=%d, overflow=%d, child=%d}",
		c.Rowid, c.PayloadSize, c.LocalPayload, c.OverflowPage, c.ChildPage)
}

// EncodeTableLeafCell encodes a table leaf cell. Payloads larger than the
// local threshold are not supported by this encoder; it exists to build
// single-page fixtures.
func EncodeTableLeafCell(rowid int64, payload []byte) []byte {
	buf := varint.Append(nil, uint64(len(payload)))
	buf = varint.Append(buf, uint64(rowid))
	return append(buf, payload...)
}

// EncodeTableInteriorCell encodes a table interior cell.
func EncodeTableInteriorCell(childPage uint32, rowid int64) []byte {
	buf := make([]byte, 4, 4+varint.MaxLen)
	binary.BigEndian.PutUint32(buf, childPage)
	return varint.Append(buf, uint64(rowid))
}

// EncodeIndexLeafCell encodes an index leaf cell.
func EncodeIndexLeafCell(payload []byte) []byte {
	buf := varint.Append(nil, uint64(len(payload)))
	return append(buf, payload...)
}

// EncodeIndexInteriorCell encodes an index interior cell.
func EncodeIndexInteriorCell(childPage uint32, payload []byte) []byte {
	buf := make([]byte, 4, 4+varint.MaxLen+len(payload))
	binary.BigEndian.PutUint32(buf, childPage)
	buf = varint.Append(buf, uint64(len(payload)))
	return append(buf, payload...)
}
