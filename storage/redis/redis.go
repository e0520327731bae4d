// Package redis implements a storage adapter that keeps applied migrations in
// a Redis list.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"go.hackfix.me/ratchet/storage"
)

// DefaultKey is the key of the list used if none is given.
const DefaultKey = "ratchet:migrations"

// Storage keeps applied migration IDs in a Redis list, in the order they were
// logged.
type Storage struct {
	client *redis.Client
	key    string
	owned  bool
	logger *slog.Logger
}

var _ storage.Storage = (*Storage)(nil)

// New returns a new Storage using an existing client. The client isn't closed
// by Close.
func New(client *redis.Client, key string, logger *slog.Logger) *Storage {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{client: client, key: key, logger: logger.With("storage", "redis", "key", key)}
}

// Constructor is the storage.Constructor of this adapter. It accepts the
// "addr" (required), "username", "password", "db" and "key" options.
func Constructor(opts storage.Options) (storage.Storage, error) {
	addr, err := opts.RequiredParam("addr")
	if err != nil {
		return nil, err
	}

	db, err := strconv.Atoi(opts.Param("db", "0"))
	if err != nil || db < 0 {
		return nil, fmt.Errorf("invalid Redis database number '%s'", opts.Param("db", ""))
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: opts.Param("username", ""),
		Password: opts.Param("password", ""),
		DB:       db,
	})

	s := New(client, opts.Param("key", DefaultKey), opts.Logger)
	s.owned = true

	return s, nil
}

// Close closes the client if it was created by Constructor.
func (s *Storage) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close() //nolint:wrapcheck // This is wrapped by the caller.
}

// Executed implements the storage.Storage interface.
func (s *Storage) Executed(ctx context.Context) ([]string, error) {
	ids, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed reading applied migrations: %w", err)
	}
	return ids, nil
}

// Log implements the storage.Storage interface.
func (s *Storage) Log(ctx context.Context, id string) error {
	_, err := s.client.LPos(ctx, s.key, id, redis.LPosArgs{}).Result()
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, redis.Nil):
		return fmt.Errorf("failed looking up migration record: %w", err)
	}

	s.logger.Debug("logging migration", "migration", id)
	if err = s.client.RPush(ctx, s.key, id).Err(); err != nil {
		return fmt.Errorf("failed inserting migration record: %w", err)
	}

	return nil
}

// Unlog implements the storage.Storage interface.
func (s *Storage) Unlog(ctx context.Context, id string) error {
	if err := s.client.LRem(ctx, s.key, 0, id).Err(); err != nil {
		return fmt.Errorf("failed deleting migration record: %w", err)
	}
	return nil
}
