package pager

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeTestDatabase writes a minimal database file with the given number of
// pages. Page 1 carries the header followed by an empty table leaf page.
func writeTestDatabase(t *testing.T, pageSize uint16, pageCount uint32) string {
	t.Helper()

	size := int(pageSize)
	data := make([]byte, size*int(pageCount))

	hdr := buildHeader(pageSize)
	binary.BigEndian.PutUint32(hdr[OffsetDatabaseSize:], pageCount)
	copy(data, hdr)

	// Empty table leaf page header after the file header.
	data[DatabaseHeaderSize] = 0x0d
	binary.BigEndian.PutUint16(data[DatabaseHeaderSize+5:], pageSize)

	path := filepath.Join(t.TempDir(), "test.db")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test database: %v", err)
	}
	return path
}

func TestOpenAndReadPage(t *testing.T) {
	path := writeTestDatabase(t, 4096, 3)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if p.PageSize() != 4096 {
		t.Errorf("PageSize = %d, want 4096", p.PageSize())
	}
	if p.PageCount() != 3 {
		t.Errorf("PageCount = %d, want 3", p.PageCount())
	}
	if p.UsableSize() != 4096 {
		t.Errorf("UsableSize = %d, want 4096", p.UsableSize())
	}

	page, err := p.ReadPage(1)
	if err != nil {
		t.Fatalf("ReadPage(1): %v", err)
	}
	if len(page) != 4096 {
		t.Errorf("page length = %d, want 4096", len(page))
	}
	if !bytes.Equal(page[:16], []byte(MagicHeaderString)) {
		t.Error("page 1 does not start with the file header")
	}
}

func TestReadPageOutOfRange(t *testing.T) {
	path := writeTestDatabase(t, 4096, 2)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	for _, pgno := range []uint32{0, 3, 100} {
		if _, err := p.ReadPage(pgno); !errors.Is(err, ErrPageOutOfRange) {
			t.Errorf("ReadPage(%d) err = %v, want ErrPageOutOfRange", pgno, err)
		}
	}
}

func TestOpenNotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.db")
	if err := os.WriteFile(path, []byte("hello, this is not a database"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrNotDatabase) {
		t.Errorf("err = %v, want ErrNotDatabase", err)
	}
}

func TestOpenTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.db")
	if err := os.WriteFile(path, []byte(MagicHeaderString), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	if !errors.Is(err, ErrNotDatabase) {
		t.Errorf("err = %v, want ErrNotDatabase", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.db"))
	if err == nil {
		t.Fatal("expected error opening missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestPageCountFallback(t *testing.T) {
	// A zero page count in the header falls back to file size.
	path := writeTestDatabase(t, 512, 4)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	binary.BigEndian.PutUint32(data[OffsetDatabaseSize:], 0)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if p.PageCount() != 4 {
		t.Errorf("PageCount = %d, want 4", p.PageCount())
	}
}

func TestPageCountHeaderLargerThanFile(t *testing.T) {
	// A header page count beyond the file is clamped to the file size.
	path := writeTestDatabase(t, 512, 4)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	binary.BigEndian.PutUint32(data[OffsetDatabaseSize:], 1000)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if p.PageCount() != 4 {
		t.Errorf("PageCount = %d, want 4", p.PageCount())
	}
}

func TestReadPageCached(t *testing.T) {
	path := writeTestDatabase(t, 512, 2)

	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	first, err := p.ReadPage(2)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	second, err := p.ReadPage(2)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if &first[0] != &second[0] {
		t.Error("repeated reads of the same page should return the cached slice")
	}
}
