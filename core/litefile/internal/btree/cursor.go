package btree

import (
	"fmt"
)

// frame is one level of a cursor's descent through the tree.
type frame struct {
	page      *Page
	idx       int  // Next cell index to visit on this page
	descended bool // Set once the child left of cell idx has been visited
}

// TableCursor iterates over the rows of a table b-tree in rowid order.
// The usage pattern follows bufio.Scanner: call Next until it returns
// false, then check Err.
type TableCursor struct {
	reader PageReader
	stack  []frame
	rowid  int64
	cell   *CellInfo
	err    error
}

// NewTableCursor creates a cursor positioned before the first row of the
// table b-tree rooted at rootPage.
func NewTableCursor(r PageReader, rootPage uint32) *TableCursor {
	c := &TableCursor{reader: r}
	c.push(rootPage)
	return c
}

// Next advances to the next row. It returns false when the table is
// exhausted or an error occurred.
func (c *TableCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		h := top.page.Header

		if h.IsLeaf {
			if top.idx >= int(h.NumCells) {
				c.pop()
				continue
			}
			cell, err := top.page.Cell(top.idx)
			if err != nil {
				return c.fail(err)
			}
			top.idx++
			c.rowid = cell.Rowid
			c.cell = cell
			return true
		}

		// Interior: cells 0..n-1 each carry a left child, then the
		// rightmost child from the page header.
		if top.idx < int(h.NumCells) {
			cell, err := top.page.Cell(top.idx)
			if err != nil {
				return c.fail(err)
			}
			top.idx++
			if !c.push(cell.ChildPage) {
				return false
			}
			continue
		}
		if top.idx == int(h.NumCells) {
			top.idx++
			if !c.push(h.RightChild) {
				return false
			}
			continue
		}
		c.pop()
	}
	return false
}

// Rowid returns the rowid of the current row.
func (c *TableCursor) Rowid() int64 { return c.rowid }

// Payload returns the full record payload of the current row, resolving
// overflow pages if needed.
func (c *TableCursor) Payload() ([]byte, error) {
	if c.cell == nil {
		return nil, fmt.Errorf("cursor not positioned on a row")
	}
	return ResolvePayload(c.reader, c.cell)
}

// Err returns the first error encountered during iteration, if any.
func (c *TableCursor) Err() error { return c.err }

func (c *TableCursor) push(pgno uint32) bool {
	page, err := loadPage(c.reader, pgno, c.stack)
	if err != nil {
		return c.fail(err)
	}
	if !page.Header.IsTable {
		return c.fail(fmt.Errorf("%w: page %d type 0x%02x in table tree",
			ErrUnknownPageType, pgno, page.Header.PageType))
	}
	c.stack = append(c.stack, frame{page: page})
	return true
}

func (c *TableCursor) pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *TableCursor) fail(err error) bool {
	c.err = err
	c.stack = nil
	c.cell = nil
	return false
}

// IndexCursor iterates over the keys of an index b-tree in key order.
// Interior pages carry keys too, so traversal interleaves child descent
// with key emission.
type IndexCursor struct {
	reader PageReader
	stack  []frame
	cell   *CellInfo
	err    error
}

// NewIndexCursor creates a cursor positioned before the first key of the
// index b-tree rooted at rootPage.
func NewIndexCursor(r PageReader, rootPage uint32) *IndexCursor {
	c := &IndexCursor{reader: r}
	c.push(rootPage)
	return c
}

// Next advances to the next key. It returns false when the index is
// exhausted or an error occurred.
func (c *IndexCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for len(c.stack) > 0 {
		top := &c.stack[len(c.stack)-1]
		h := top.page.Header

		if h.IsLeaf {
			if top.idx >= int(h.NumCells) {
				c.pop()
				continue
			}
			cell, err := top.page.Cell(top.idx)
			if err != nil {
				return c.fail(err)
			}
			top.idx++
			c.cell = cell
			return true
		}

		if top.idx < int(h.NumCells) {
			cell, err := top.page.Cell(top.idx)
			if err != nil {
				return c.fail(err)
			}
			if !top.descended {
				top.descended = true
				if !c.push(cell.ChildPage) {
					return false
				}
				continue
			}
			// Child left of this cell done, emit the cell's key.
			top.descended = false
			top.idx++
			c.cell = cell
			return true
		}
		if top.idx == int(h.NumCells) && !top.descended {
			top.descended = true
			if !c.push(h.RightChild) {
				return false
			}
			continue
		}
		c.pop()
	}
	return false
}

// Payload returns the full key payload of the current entry, resolving
// overflow pages if needed.
func (c *IndexCursor) Payload() ([]byte, error) {
	if c.cell == nil {
		return nil, fmt.Errorf("cursor not positioned on an entry")
	}
	return ResolvePayload(c.reader, c.cell)
}

// Err returns the first error encountered during iteration, if any.
func (c *IndexCursor) Err() error { return c.err }

func (c *IndexCursor) push(pgno uint32) bool {
	page, err := loadPage(c.reader, pgno, c.stack)
	if err != nil {
		return c.fail(err)
	}
	if !page.Header.IsIndex {
		return c.fail(fmt.Errorf("%w: page %d type 0x%02x in index tree",
			ErrUnknownPageType, pgno, page.Header.PageType))
	}
	c.stack = append(c.stack, frame{page: page})
	return true
}

func (c *IndexCursor) pop() {
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *IndexCursor) fail(err error) bool {
	c.err = err
	c.stack = nil
	c.cell = nil
	return false
}

// loadPage reads and parses a b-tree page, rejecting pages already on the
// descent stack so that a corrupted tree with a cycle cannot loop forever.
func loadPage(r PageReader, pgno uint32, stack []frame) (*Page, error) {
	for i := range stack {
		if stack[i].page.Num == pgno {
			return nil, fmt.Errorf("%w: page %d already on traversal path", ErrCyclicTree, pgno)
		}
	}
	data, err := r.ReadPage(pgno)
	if err != nil {
		return nil, err
	}
	return ParsePage(pgno, data, r.UsableSize())
}
