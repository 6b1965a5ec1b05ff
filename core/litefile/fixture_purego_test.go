//go:build !cgo_sqlite

package litefile_test

import (
	// Pure Go SQLite driver used to create test fixtures.
	_ "modernc.org/sqlite"
)

// fixtureDriver is the database/sql driver used to build fixture files.
const fixtureDriver = "sqlite"
