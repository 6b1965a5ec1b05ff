// Package schema reads the database catalog from the sqlite_master table.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FocuswithJustin/litefile/core/litefile/internal/btree"
	"github.com/FocuswithJustin/litefile/core/litefile/internal/record"
)

// sqlite_master table schema:
//
// CREATE TABLE sqlite_master (
//   type TEXT,      -- "table", "index", "trigger", "view"
//   name TEXT,      -- object name
//   tbl_name TEXT,  -- table name (for indexes/triggers)
//   rootpage INT,   -- root B-tree page
//   sql TEXT        -- CREATE statement
// );
//
// The sqlite_master table is always rooted at page 1.

// ErrNotFound is returned when a named object is not in the catalog.
var ErrNotFound = errors.New("object not found in schema")

// masterRootPage is where the sqlite_master b-tree always lives.
const masterRootPage = 1

// Entry is one row of the sqlite_master table.
type Entry struct {
	Type      string   // "table", "index", "trigger", "view"
	Name      string   // Object name
	TableName string   // Associated table name
	RootPage  uint32   // Root page number (0 for views and triggers)
	SQL       string   // CREATE statement
	Columns   []string // Column names extracted from SQL, nil if unavailable
}

// Catalog holds the parsed catalog of a database file.
type Catalog struct {
	entries []Entry
	byName  map[string]*Entry
}

// Load reads every row of sqlite_master and builds the catalog. encoding is
// the database's declared text encoding.
func Load(r btree.PageReader, encoding uint32) (*Catalog, error) {
	cat := &Catalog{byName: make(map[string]*Entry)}

	cur := btree.NewTableCursor(r, masterRootPage)
	for cur.Next() {
		payload, err := cur.Payload()
		if err != nil {
			return nil, fmt.Errorf("sqlite_master rowid %d: %w", cur.Rowid(), err)
		}
		rec, err := record.DecodeEncoding(payload, encoding)
		if err != nil {
			return nil, fmt.Errorf("sqlite_master rowid %d: %w", cur.Rowid(), err)
		}
		entry, err := entryFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("sqlite_master rowid %d: %w", cur.Rowid(), err)
		}
		cat.entries = append(cat.entries, entry)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("sqlite_master: %w", err)
	}

	for i := range cat.entries {
		cat.byName[cat.entries[i].Name] = &cat.entries[i]
	}
	return cat, nil
}

// entryFromRecord maps the five sqlite_master columns onto an Entry.
func entryFromRecord(rec *record.Record) (Entry, error) {
	if rec.Len() < 5 {
		return Entry{}, fmt.Errorf("expected 5 columns, got %d", rec.Len())
	}

	var e Entry
	e.Type = textColumn(rec.Values[0])
	e.Name = textColumn(rec.Values[1])
	e.TableName = textColumn(rec.Values[2])

	// rootpage is NULL for views and triggers.
	if rp := rec.Values[3]; rp.Type == record.TypeInteger {
		if rp.Int < 0 {
			return Entry{}, fmt.Errorf("negative root page %d for %q", rp.Int, e.Name)
		}
		e.RootPage = uint32(rp.Int)
	}
	e.SQL = textColumn(rec.Values[4])

	if e.SQL != "" {
		e.Columns = extractColumns(e.Type, e.SQL)
	}
	return e, nil
}

func textColumn(v record.Value) string {
	if v.Type == record.TypeText {
		return v.Text
	}
	return ""
}

// Entries returns all catalog rows in sqlite_master order.
func (c *Catalog) Entries() []Entry { return c.entries }

// Tables returns the table entries, excluding internal sqlite_* tables.
func (c *Catalog) Tables() []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Type == "table" && !strings.HasPrefix(e.Name, "sqlite_") {
			out = append(out, e)
		}
	}
	return out
}

// Indexes returns the index entries, excluding automatic indexes.
func (c *Catalog) Indexes() []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Type == "index" && !strings.HasPrefix(e.Name, "sqlite_autoindex_") {
			out = append(out, e)
		}
	}
	return out
}

// Resolve finds a catalog object by name. The catalog table itself resolves
// under its well-known names.
func (c *Catalog) Resolve(name string) (*Entry, error) {
	if name == "sqlite_master" || name == "sqlite_schema" {
		return &Entry{
			Type:      "table",
			Name:      "sqlite_master",
			TableName: "sqlite_master",
			RootPage:  masterRootPage,
			SQL:       "CREATE TABLE sqlite_master(type text,name text,tbl_name text,rootpage integer,sql text)",
			Columns:   []string{"type", "name", "tbl_name", "rootpage", "sql"},
		}, nil
	}
	if e, ok := c.byName[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}
