// Package sqlite implements a storage adapter backed by a SQLite table.
package sqlite

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/glebarez/go-sqlite"

	"go.hackfix.me/ratchet/storage"
	"go.hackfix.me/ratchet/storage/sqlstore"
)

// Dialect is the SQLite dialect of sqlstore.
var Dialect = sqlstore.Dialect{
	Name: "sqlite",
	CreateTable: `CREATE TABLE IF NOT EXISTS %s (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL UNIQUE,
		applied_at TIMESTAMP NOT NULL
	)`,
	Placeholder: func(int) string { return "?" },
}

// Constructor is the storage.Constructor of this adapter. It accepts the
// "dsn" (required) and "table" options.
func Constructor(opts storage.Options) (storage.Storage, error) {
	dsn, err := opts.RequiredParam("dsn")
	if err != nil {
		return nil, err
	}

	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}

	s, err := sqlstore.New(db, opts.Param("table", sqlstore.DefaultTable), Dialect, true, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Open opens a SQLite database.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	if strings.Contains(dsn, "mode=memory") || strings.Contains(dsn, ":memory:") {
		// See https://github.com/mattn/go-sqlite3#faq
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(time.Duration(math.Inf(1)))
	}

	return db, nil
}
