// Package litefile reads SQLite database files directly, without a SQL
// engine. It parses the file header, walks table and index b-trees in key
// order, decodes records, and exposes the catalog from sqlite_master.
//
// All access is read-only. A Database and the cursors it hands out are not
// safe for concurrent use without external synchronization.
package litefile

import (
	"fmt"

	"github.com/FocuswithJustin/litefile/core/litefile/internal/btree"
	"github.com/FocuswithJustin/litefile/core/litefile/internal/pager"
	"github.com/FocuswithJustin/litefile/core/litefile/internal/record"
	"github.com/FocuswithJustin/litefile/core/litefile/internal/schema"
	"github.com/FocuswithJustin/litefile/internal/logging"
)

// Re-exported types so callers never import internal packages.
type (
	// Header is the parsed 100-byte database file header.
	Header = pager.DatabaseHeader
	// Value is a single decoded column value.
	Value = record.Value
	// Record is a decoded row or index key.
	Record = record.Record
	// SchemaEntry is one row of the sqlite_master catalog.
	SchemaEntry = schema.Entry
)

// Value type constants.
const (
	TypeNull    = record.TypeNull
	TypeInteger = record.TypeInteger
	TypeFloat   = record.TypeFloat
	TypeText    = record.TypeText
	TypeBlob    = record.TypeBlob
)

// Text encoding constants from the database header.
const (
	EncodingUTF8    = pager.EncodingUTF8
	EncodingUTF16LE = pager.EncodingUTF16LE
	EncodingUTF16BE = pager.EncodingUTF16BE
)

// Errors surfaced by this package.
var (
	ErrNotDatabase     = pager.ErrNotDatabase
	ErrCorruptHeader   = pager.ErrCorruptHeader
	ErrPageOutOfRange  = pager.ErrPageOutOfRange
	ErrUnknownPageType = btree.ErrUnknownPageType
	ErrTruncated       = btree.ErrTruncated
	ErrOverflowChain   = btree.ErrOverflowChain
	ErrCyclicTree      = btree.ErrCyclicTree
	ErrTruncatedRecord = record.ErrTruncated
	ErrSerialType      = record.ErrSerialType
	ErrColumnRange     = record.ErrColumnRange
	ErrNotFound        = schema.ErrNotFound
)

// Database is an open, read-only database file.
type Database struct {
	pager   *pager.Pager
	catalog *schema.Catalog
}

// Open opens a database file, validates its header, and loads the catalog.
func Open(path string) (*Database, error) {
	p, err := pager.Open(path)
	if err != nil {
		return nil, err
	}

	cat, err := schema.Load(p, textEncoding(p.Header()))
	if err != nil {
		p.Close()
		logging.CorruptionDetected(path, "schema", err)
		return nil, fmt.Errorf("load schema: %w", err)
	}

	logging.DatabaseOpen(path, p.PageSize(), p.PageCount())
	return &Database{pager: p, catalog: cat}, nil
}

// Close releases the underlying file.
func (db *Database) Close() error {
	return db.pager.Close()
}

// Path returns the path the database was opened from.
func (db *Database) Path() string { return db.pager.Path() }

// Header returns the parsed file header.
func (db *Database) Header() *Header { return db.pager.Header() }

// PageSize returns the database page size in bytes.
func (db *Database) PageSize() int { return db.pager.PageSize() }

// UsableSize returns the page size minus reserved space.
func (db *Database) UsableSize() uint32 { return db.pager.UsableSize() }

// PageCount returns the number of pages in the database.
func (db *Database) PageCount() uint32 { return db.pager.PageCount() }

// TextEncoding returns the declared text encoding (1 UTF-8, 2 UTF-16LE,
// 3 UTF-16BE). Files that have never stored text leave the field zero;
// those read as UTF-8.
func (db *Database) TextEncoding() uint32 { return textEncoding(db.pager.Header()) }

func textEncoding(h *Header) uint32 {
	if h.TextEncoding != 0 {
		return h.TextEncoding
	}
	return EncodingUTF8
}

// ReadPage returns the raw contents of a page. Page numbers start at 1.
// The returned slice is shared and must not be modified.
func (db *Database) ReadPage(pgno uint32) ([]byte, error) {
	return db.pager.ReadPage(pgno)
}

// Schema returns every catalog entry in sqlite_master order.
func (db *Database) Schema() []SchemaEntry { return db.catalog.Entries() }

// Tables returns the user table entries from the catalog.
func (db *Database) Tables() []SchemaEntry { return db.catalog.Tables() }

// Indexes returns the named index entries from the catalog.
func (db *Database) Indexes() []SchemaEntry { return db.catalog.Indexes() }

// Resolve finds a catalog object by name.
func (db *Database) Resolve(name string) (*SchemaEntry, error) {
	return db.catalog.Resolve(name)
}

// ScanTable returns a cursor over the rows of the named table, in rowid
// order.
func (db *Database) ScanTable(name string) (*Rows, error) {
	entry, err := db.catalog.Resolve(name)
	if err != nil {
		return nil, err
	}
	if entry.Type != "table" {
		return nil, fmt.Errorf("%w: %q is a %s, not a table", ErrNotFound, name, entry.Type)
	}
	if entry.RootPage == 0 {
		return nil, fmt.Errorf("%w: %q has no storage", ErrNotFound, name)
	}
	return db.ScanTableRoot(entry.RootPage), nil
}

// ScanTableRoot returns a cursor over the table b-tree rooted at the given
// page. Most callers want ScanTable.
func (db *Database) ScanTableRoot(rootPage uint32) *Rows {
	return &Rows{
		cur:      btree.NewTableCursor(db.pager, rootPage),
		encoding: db.TextEncoding(),
	}
}

// ScanIndex returns a cursor over the keys of the named index, in key order.
func (db *Database) ScanIndex(name string) (*IndexKeys, error) {
	entry, err := db.catalog.Resolve(name)
	if err != nil {
		return nil, err
	}
	if entry.Type != "index" {
		return nil, fmt.Errorf("%w: %q is a %s, not an index", ErrNotFound, name, entry.Type)
	}
	if entry.RootPage == 0 {
		return nil, fmt.Errorf("%w: %q has no storage", ErrNotFound, name)
	}
	return db.ScanIndexRoot(entry.RootPage), nil
}

// ScanIndexRoot returns a cursor over the index b-tree rooted at the given
// page. Most callers want ScanIndex.
func (db *Database) ScanIndexRoot(rootPage uint32) *IndexKeys {
	return &IndexKeys{
		cur:      btree.NewIndexCursor(db.pager, rootPage),
		encoding: db.TextEncoding(),
	}
}

// Rows iterates over the rows of a table in rowid order. Use it like
// database/sql rows: Next until false, then Err.
type Rows struct {
	cur      *btree.TableCursor
	encoding uint32
}

// Next advances to the next row.
func (r *Rows) Next() bool { return r.cur.Next() }

// Rowid returns the rowid of the current row.
func (r *Rows) Rowid() int64 { return r.cur.Rowid() }

// Payload returns the raw record bytes of the current row, with overflow
// resolved.
func (r *Rows) Payload() ([]byte, error) { return r.cur.Payload() }

// Record decodes the current row's record.
func (r *Rows) Record() (*Record, error) {
	payload, err := r.cur.Payload()
	if err != nil {
		return nil, err
	}
	return record.DecodeEncoding(payload, r.encoding)
}

// Err returns the first error encountered during iteration, if any.
func (r *Rows) Err() error { return r.cur.Err() }

// IndexKeys iterates over the keys of an index in key order.
type IndexKeys struct {
	cur      *btree.IndexCursor
	encoding uint32
}

// Next advances to the next key.
func (k *IndexKeys) Next() bool { return k.cur.Next() }

// Payload returns the raw key bytes of the current entry, with overflow
// resolved.
func (k *IndexKeys) Payload() ([]byte, error) { return k.cur.Payload() }

// Record decodes the current key. The last column of an index key is the
// rowid of the indexed row.
func (k *IndexKeys) Record() (*Record, error) {
	payload, err := k.cur.Payload()
	if err != nil {
		return nil, err
	}
	return record.DecodeEncoding(payload, k.encoding)
}

// Err returns the first error encountered during iteration, if any.
func (k *IndexKeys) Err() error { return k.cur.Err() }
