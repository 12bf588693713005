//go:build !sqlite_cgo

package storage

import (
	// Pure-Go SQLite driver, used unless built with -tags sqlite_cgo.
	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"
