package condmerge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hkloudou/condmerge/internal/journal"
	"github.com/hkloudou/condmerge/internal/storage"
	"github.com/hkloudou/condmerge/internal/store"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a RecordStore on Redis hashes with a Lua compare-and-set
type RedisStore struct {
	s *store.RedisStore
}

// NewRedisStore creates a Redis backed RecordStore; prefix namespaces keys
func NewRedisStore(rdb redis.UniversalClient, prefix string, logger *slog.Logger) *RedisStore {
	return &RedisStore{s: store.NewRedisStore(rdb, prefix, logger)}
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Record, error) {
	rec, err := r.s.Load(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, id)
	}
	return rec, err
}

func (r *RedisStore) Save(ctx context.Context, rec *Record, expected int64) error {
	err := r.s.Save(ctx, rec, expected)
	if errors.Is(err, store.ErrRevisionConflict) {
		return fmt.Errorf("%w: %s expected revision %d", ErrRevisionConflict, rec.ID, expected)
	}
	return err
}

// Journal is an EventSink writing one object per event to object storage
type Journal struct {
	j *journal.Journal
}

// NewJournal creates a journal on s. A non-empty aesKey encrypts entries.
func NewJournal(s storage.Storage, prefix, aesKey string, logger *slog.Logger) *Journal {
	return &Journal{j: journal.New(s,
		journal.WithPrefix(prefix),
		journal.WithAESKey(aesKey),
		journal.WithLogger(logger),
	)}
}

// NewMemoryJournal creates an unencrypted in-memory journal
func NewMemoryJournal() *Journal {
	return NewJournal(storage.NewMemoryStorage("journal"), "condmerge", "", nil)
}

func (j *Journal) Append(ctx context.Context, event *ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return j.j.Append(ctx, journal.Entry{
		TargetID: event.TargetID,
		Revision: event.Revision,
		Data:     data,
	})
}

// Events returns the recorded events of id in revision order
func (j *Journal) Events(ctx context.Context, id string) ([]*ChangeEvent, error) {
	entries, err := j.j.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	events := make([]*ChangeEvent, 0, len(entries))
	for _, e := range entries {
		var event ChangeEvent
		if err := json.Unmarshal(e.Data, &event); err != nil {
			return nil, fmt.Errorf("failed to decode event %s@%d: %w", e.TargetID, e.Revision, err)
		}
		events = append(events, &event)
	}
	return events, nil
}
