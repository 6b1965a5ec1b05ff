//go:build cgo_sqlite

package litefile_test

import (
	// CGO SQLite driver, selected with -tags cgo_sqlite.
	_ "github.com/mattn/go-sqlite3"
)

// fixtureDriver is the database/sql driver used to build fixture files.
const fixtureDriver = "sqlite3"
