package btree

import (
	"encoding/binary"
	"fmt"
)

// PageReader supplies raw pages to b-tree traversal code.
type PageReader interface {
	// ReadPage returns the raw contents of the given page. Page numbers
	// start at 1.
	ReadPage(pgno uint32) ([]byte, error)
	// PageCount returns the number of pages in the database.
	PageCount() uint32
	// UsableSize returns the page size minus reserved space.
	UsableSize() uint32
}

// ResolvePayload returns the full payload of a cell, reading overflow pages
// as needed. When the payload fits entirely on the b-tree page, the cell's
// local slice is returned without copying.
func ResolvePayload(r PageReader, cell *CellInfo) ([]byte, error) {
	if cell.OverflowPage == 0 {
		return cell.Payload, nil
	}

	usable := r.UsableSize()
	if usable <= 4 {
		return nil, fmt.Errorf("%w: usable size %d too small for overflow", ErrOverflowChain, usable)
	}
	perPage := usable - 4

	payload := make([]byte, 0, cell.PayloadSize)
	payload = append(payload, cell.Payload...)

	pgno := cell.OverflowPage
	// An overflow chain can never be longer than the database itself.
	maxHops := r.PageCount()
	var hops uint32
	for pgno != 0 {
		if hops >= maxHops {
			return nil, fmt.Errorf("%w: chain exceeds %d pages", ErrOverflowChain, maxHops)
		}
		hops++

		if pgno > r.PageCount() {
			return nil, fmt.Errorf("%w: overflow page %d beyond end of database", ErrOverflowChain, pgno)
		}
		data, err := r.ReadPage(pgno)
		if err != nil {
			return nil, fmt.Errorf("overflow page %d: %w", pgno, err)
		}
		if uint32(len(data)) < usable {
			return nil, fmt.Errorf("%w: overflow page %d too short", ErrOverflowChain, pgno)
		}

		next := binary.BigEndian.Uint32(data[0:4])
		remaining := cell.PayloadSize - uint32(len(payload))
		take := perPage
		if remaining < take {
			take = remaining
		}
		payload = append(payload, data[4:4+take]...)

		if uint32(len(payload)) == cell.PayloadSize {
			if next != 0 {
				return nil, fmt.Errorf("%w: trailing overflow page %d after payload complete", ErrOverflowChain, next)
			}
			return payload, nil
		}
		pgno = next
	}

	return nil, fmt.Errorf("%w: chain ended with %d of %d payload bytes",
		ErrOverflowChain, len(payload), cell.PayloadSize)
}
