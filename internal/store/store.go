// Package store keeps the current state of every record in Redis and
// guards writes with a revision compare-and-set.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hkloudou/condmerge/internal/encode"
	"github.com/hkloudou/condmerge/internal/record"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned by Load for an unknown record
	ErrNotFound = errors.New("store: record not found")
	// ErrRevisionConflict is returned by Save when the stored revision moved
	ErrRevisionConflict = errors.New("store: revision conflict")
)

// RedisStore stores each record as a hash {prefix}:record:{encodedID}
// with fields rev, modified and body.
type RedisStore struct {
	rdb     redis.UniversalClient
	prefix  string
	scripts *scripts
}

// NewRedisStore creates a store. prefix namespaces the keys.
func NewRedisStore(rdb redis.UniversalClient, prefix string, log *slog.Logger) *RedisStore {
	if prefix == "" {
		prefix = "condmerge"
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &RedisStore{rdb: rdb, prefix: prefix, scripts: newScripts(rdb, log)}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("%s:record:%s", s.prefix, encode.EncodeID(id))
}

// Load reads the current state of id
func (s *RedisStore) Load(ctx context.Context, id string) (*record.Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rev, err := strconv.ParseInt(fields["rev"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("record %s has invalid revision %q", id, fields["rev"])
	}
	modified, err := time.Parse(time.RFC3339Nano, fields["modified"])
	if err != nil {
		return nil, fmt.Errorf("record %s has invalid modified time %q", id, fields["modified"])
	}
	return record.New(id, rev, modified, []byte(fields["body"]))
}

// Save writes rec if the stored revision still equals expected.
// expected 0 means the record must not exist yet.
func (s *RedisStore) Save(ctx context.Context, rec *record.Record, expected int64) error {
	ok, err := s.scripts.eval(ctx, "save.lua",
		[]string{s.key(rec.ID)},
		strconv.FormatInt(expected, 10),
		strconv.FormatInt(rec.Revision, 10),
		rec.Modified.Format(time.RFC3339Nano),
		string(rec.Body),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", rec.ID, err)
	}
	if ok != 1 {
		return fmt.Errorf("%w: %s expected revision %d", ErrRevisionConflict, rec.ID, expected)
	}
	return nil
}

// Delete removes id
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}
