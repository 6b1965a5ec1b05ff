// Command litefile inspects SQLite database files without a SQL engine.
// It provides commands for dumping the header, listing the catalog, and
// walking table and index b-trees.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/litefile/core/litefile"
	"github.com/FocuswithJustin/litefile/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for litefile.
var CLI struct {
	// Global flags
	LogLevel  string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`

	Info    InfoCmd    `cmd:"" help:"Show database header information"`
	Tables  TablesCmd  `cmd:"" help:"List tables and indexes from the catalog"`
	Rows    RowsCmd    `cmd:"" help:"Dump all rows of a table in rowid order"`
	Keys    KeysCmd    `cmd:"" help:"Dump all keys of an index in key order"`
	Digest  DigestCmd  `cmd:"" help:"Compute a BLAKE3 digest of a table's contents"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// InfoCmd shows database header information.
type InfoCmd struct {
	Path string `arg:"" help:"Database file" type:"existingfile"`
}

func (c *InfoCmd) Run() error {
	db, err := litefile.Open(c.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	h := db.Header()
	fmt.Printf("path:            %s\n", db.Path())
	fmt.Printf("page size:       %d\n", db.PageSize())
	fmt.Printf("usable size:     %d\n", db.UsableSize())
	fmt.Printf("page count:      %d\n", db.PageCount())
	fmt.Printf("text encoding:   %s\n", encodingName(db.TextEncoding()))
	fmt.Printf("freelist pages:  %d\n", h.FreelistCount)
	fmt.Printf("schema cookie:   %d\n", h.SchemaCookie)
	fmt.Printf("schema format:   %d\n", h.SchemaFormat)
	fmt.Printf("file change ctr: %d\n", h.FileChangeCounter)
	fmt.Printf("user version:    %d\n", int32(h.UserVersion))
	fmt.Printf("application id:  %d\n", int32(h.ApplicationID))
	if h.IncrementalVacuum != 0 || h.LargestRootPage != 0 {
		fmt.Printf("vacuum mode:     incremental=%d largest_root=%d\n",
			h.IncrementalVacuum, h.LargestRootPage)
	}
	return nil
}

func encodingName(enc uint32) string {
	switch enc {
	case litefile.EncodingUTF8:
		return "UTF-8"
	case litefile.EncodingUTF16LE:
		return "UTF-16le"
	case litefile.EncodingUTF16BE:
		return "UTF-16be"
	}
	return fmt.Sprintf("unknown (%d)", enc)
}

// TablesCmd lists catalog objects.
type TablesCmd struct {
	Path string `arg:"" help:"Database file" type:"existingfile"`
	All  bool   `help:"Include internal objects and views/triggers"`
}

func (c *TablesCmd) Run() error {
	db, err := litefile.Open(c.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	entries := db.Schema()
	if !c.All {
		entries = append(db.Tables(), db.Indexes()...)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, e := range entries {
		cols := ""
		if len(e.Columns) > 0 {
			cols = " (" + strings.Join(e.Columns, ", ") + ")"
		}
		fmt.Fprintf(w, "%-8s %-24s root=%-5d%s\n", e.Type, e.Name, e.RootPage, cols)
	}
	return nil
}

// RowsCmd dumps all rows of a table.
type RowsCmd struct {
	Path   string `arg:"" help:"Database file" type:"existingfile"`
	Table  string `arg:"" help:"Table name"`
	Output string `short:"o" help:"Write to file instead of stdout; a .xz suffix enables compression" type:"path"`
}

func (c *RowsCmd) Run() error {
	db, err := litefile.Open(c.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	out, closeOut, err := openOutput(c.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	rows, err := db.ScanTable(c.Table)
	if err != nil {
		return err
	}
	for rows.Next() {
		rec, err := rows.Record()
		if err != nil {
			return fmt.Errorf("rowid %d: %w", rows.Rowid(), err)
		}
		fmt.Fprintf(out, "%d|%s\n", rows.Rowid(), formatRecord(rec))
	}
	return rows.Err()
}

// KeysCmd dumps all keys of an index.
type KeysCmd struct {
	Path  string `arg:"" help:"Database file" type:"existingfile"`
	Index string `arg:"" help:"Index name"`
}

func (c *KeysCmd) Run() error {
	db, err := litefile.Open(c.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	keys, err := db.ScanIndex(c.Index)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for keys.Next() {
		rec, err := keys.Record()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, formatRecord(rec))
	}
	return keys.Err()
}

// DigestCmd computes a content digest over every row of a table, useful for
// comparing two database files that should hold the same data.
type DigestCmd struct {
	Path  string `arg:"" help:"Database file" type:"existingfile"`
	Table string `arg:"" help:"Table name"`
}

func (c *DigestCmd) Run() error {
	db, err := litefile.Open(c.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.ScanTable(c.Table)
	if err != nil {
		return err
	}

	hasher := blake3.New()
	var buf [8]byte
	for rows.Next() {
		rowid := rows.Rowid()
		for i := 0; i < 8; i++ {
			buf[i] = byte(rowid >> (56 - 8*i))
		}
		hasher.Write(buf[:])

		payload, err := rows.Payload()
		if err != nil {
			return fmt.Errorf("rowid %d: %w", rowid, err)
		}
		hasher.Write(payload)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fmt.Printf("%x  %s\n", hasher.Sum(nil), c.Table)
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("litefile version %s\n", version)
	return nil
}

// formatRecord renders a record the way the sqlite3 shell's list mode does.
func formatRecord(rec *litefile.Record) string {
	parts := make([]string, len(rec.Values))
	for i, v := range rec.Values {
		parts[i] = v.String()
	}
	return strings.Join(parts, "|")
}

// openOutput returns a writer for path, or stdout when path is empty.
// Paths ending in .xz are compressed.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		w := bufio.NewWriter(os.Stdout)
		return w, func() error { return w.Flush() }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	if strings.HasSuffix(path, ".xz") {
		xw, err := xz.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return xw, func() error {
			if err := xw.Close(); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}, nil
	}

	bw := bufio.NewWriter(f)
	return bw, func() error {
		if err := bw.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("litefile"),
		kong.Description("Read-only SQLite file format inspector"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	logging.InitLogger(parseLevel(CLI.LogLevel), parseFormat(CLI.LogFormat))

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "info":
		return logging.LevelInfo
	case "error":
		return logging.LevelError
	}
	return logging.LevelWarn
}

func parseFormat(s string) logging.Format {
	if s == "json" {
		return logging.FormatJSON
	}
	return logging.FormatText
}
