//go:build sqlite_cgo

package database

// This file is compiled when building with CGO and the sqlite_cgo tag:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// SQLiteDriverName is the database/sql driver registered for SQLite.
	SQLiteDriverName = "sqlite3"

	// BuildMode describes the current build configuration.
	BuildMode = "cgo"

	// foreignKeysParam enables foreign keys on every new connection.
	foreignKeysParam = "_foreign_keys=1"
)
