//go:build !sqlite_cgo

package database

// This file is compiled by default. It uses the pure Go SQLite
// implementation, so no C compiler is needed.
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// SQLiteDriverName is the database/sql driver registered for SQLite.
	SQLiteDriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"

	// foreignKeysParam enables foreign keys on every new connection.
	foreignKeysParam = "_pragma=foreign_keys(1)"
)
