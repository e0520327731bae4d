// Package builtin registers the storage adapters shipped with ratchet.
package builtin

import (
	"go.hackfix.me/ratchet/storage"
	jsonstore "go.hackfix.me/ratchet/storage/json"
	"go.hackfix.me/ratchet/storage/memory"
	"go.hackfix.me/ratchet/storage/postgres"
	"go.hackfix.me/ratchet/storage/redis"
	"go.hackfix.me/ratchet/storage/sqlite"
)

// Registry returns the built-in storage adapters.
func Registry() storage.Registry {
	return storage.Registry{
		"json":     jsonstore.Constructor,
		"memory":   memory.Constructor,
		"sqlite":   sqlite.Constructor,
		"postgres": postgres.Constructor,
		"redis":    redis.Constructor,
	}
}
