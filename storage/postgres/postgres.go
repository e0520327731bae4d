// Package postgres implements a storage adapter backed by a PostgreSQL table.
package postgres

import (
	"database/sql"
	"fmt"
	"strconv"

	//nolint:revive,nolintlint // Idiomatic way of loading DB libraries.
	_ "github.com/lib/pq"

	"go.hackfix.me/ratchet/storage"
	"go.hackfix.me/ratchet/storage/sqlstore"
)

// Dialect is the PostgreSQL dialect of sqlstore.
var Dialect = sqlstore.Dialect{
	Name: "postgres",
	CreateTable: `CREATE TABLE IF NOT EXISTS %s (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		applied_at TIMESTAMPTZ NOT NULL
	)`,
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// Constructor is the storage.Constructor of this adapter. It accepts the
// "dsn" (required) and "table" options.
func Constructor(opts storage.Options) (storage.Storage, error) {
	dsn, err := opts.RequiredParam("dsn")
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed opening PostgreSQL database: %w", err)
	}

	s, err := sqlstore.New(db, opts.Param("table", sqlstore.DefaultTable), Dialect, true, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}
