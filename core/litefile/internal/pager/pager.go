package pager

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Pager provides read-only page access to a SQLite database file.
//
// Page fetches are synchronous and may block on I/O. Concurrent callers are
// serialized on an internal lock so that a single file handle can back any
// number of cursors.
type Pager struct {
	file      *os.File
	path      string
	header    *DatabaseHeader
	pageSize  int
	pageCount uint32
	cache     *pageCache

	mu sync.Mutex
}

// Open opens a database file read-only and validates its header.
//
// The page count is taken from the header; when the header value is zero or
// inconsistent with the file length, it is recomputed from the file length
// divided by the page size.
func Open(path string) (*Pager, error) {
	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open database file: %w", err)
	}

	p := &Pager{file: file, path: path}
	if err := p.readHeader(); err != nil {
		file.Close()
		return nil, err
	}

	p.cache = newPageCache(DefaultCachePages)
	return p, nil
}

func (p *Pager) readHeader() error {
	headerData := make([]byte, DatabaseHeaderSize)
	if _, err := p.file.ReadAt(headerData, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return fmt.Errorf("%w: file shorter than %d-byte header", ErrNotDatabase, DatabaseHeaderSize)
		}
		return fmt.Errorf("failed to read database header: %w", err)
	}

	header, err := ParseDatabaseHeader(headerData)
	if err != nil {
		return err
	}
	if err := header.Validate(); err != nil {
		return err
	}

	p.header = header
	p.pageSize = header.GetPageSize()

	info, err := p.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat database file: %w", err)
	}
	filePages := uint32(info.Size() / int64(p.pageSize))

	p.pageCount = header.DatabaseSize
	if p.pageCount == 0 || p.pageCount > filePages {
		p.pageCount = filePages
	}
	return nil
}

// Close closes the underlying file. The pager must not be used afterwards.
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cache.clear()
	if p.file != nil {
		if err := p.file.Close(); err != nil {
			return err
		}
		p.file = nil
	}
	return nil
}

// ReadPage returns the raw bytes of the given 1-based page number.
//
// The returned slice is a shared read-only view and must not be modified.
// Page 1 includes the 100-byte file header; callers interpreting page 1's
// b-tree content must skip those bytes themselves, and only for page 1.
func (p *Pager) ReadPage(pgno uint32) ([]byte, error) {
	if pgno == 0 || pgno > p.pageCount {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, pgno, p.pageCount)
	}

	if data, ok := p.cache.get(pgno); ok {
		return data, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.file == nil {
		return nil, fmt.Errorf("pager is closed")
	}

	data := make([]byte, p.pageSize)
	offset := int64(pgno-1) * int64(p.pageSize)
	n, err := p.file.ReadAt(data, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read page %d: %w", pgno, err)
	}
	if n < p.pageSize {
		return nil, fmt.Errorf("short read on page %d: got %d of %d bytes", pgno, n, p.pageSize)
	}

	p.cache.put(pgno, data)
	return data, nil
}

// Header returns the parsed database file header.
func (p *Pager) Header() *DatabaseHeader { return p.header }

// PageSize returns the page size in bytes.
func (p *Pager) PageSize() int { return p.pageSize }

// UsableSize returns the usable bytes per page (page size minus reserved space).
func (p *Pager) UsableSize() uint32 { return uint32(p.header.UsableSize()) }

// PageCount returns the number of pages in the database.
func (p *Pager) PageCount() uint32 { return p.pageCount }

// Path returns the path the pager was opened with.
func (p *Pager) Path() string { return p.path }
