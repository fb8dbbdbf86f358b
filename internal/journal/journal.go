// Package journal persists change events to object storage, one object per
// record revision.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hkloudou/condmerge/internal/encode"
	"github.com/hkloudou/condmerge/internal/encrypt"
	"github.com/hkloudou/condmerge/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ErrDuplicate is returned when an entry for the revision already exists
var ErrDuplicate = errors.New("journal: revision already recorded")

const readConcurrency = 8

// Entry is one serialized event
type Entry struct {
	TargetID string
	Revision int64
	Data     []byte
}

// Journal appends entries under a per-record directory:
//
//	{prefix}/{hash4}/{encodedID}/events/{revision:020d}.json
type Journal struct {
	storage storage.Storage
	codec   *encrypt.Codec
	prefix  string
	log     *slog.Logger
}

// Option configures a Journal
type Option struct {
	Prefix string
	AESKey string
	Logger *slog.Logger
}

// New creates a journal over s
func New(s storage.Storage, opts ...func(*Option)) *Journal {
	o := &Option{Prefix: "condmerge"}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Journal{
		storage: s,
		codec:   encrypt.NewCodec(o.AESKey),
		prefix:  strings.Trim(o.Prefix, "/"),
		log:     logger,
	}
}

// WithPrefix sets the top level directory
func WithPrefix(prefix string) func(*Option) {
	return func(o *Option) { o.Prefix = prefix }
}

// WithAESKey enables encryption at rest
func WithAESKey(key string) func(*Option) {
	return func(o *Option) { o.AESKey = key }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) func(*Option) {
	return func(o *Option) { o.Logger = l }
}

func (j *Journal) dir(id string) string {
	sum := strconv.FormatUint(xxhash.Sum64String(id), 16)
	for len(sum) < 4 {
		sum = "0" + sum
	}
	return fmt.Sprintf("%s/%s/%s/events/", j.prefix, sum[:4], encode.EncodeID(id))
}

func (j *Journal) key(id string, rev int64) string {
	return fmt.Sprintf("%s%020d.json", j.dir(id), rev)
}

// Append stores e. Entries are immutable; a second append for the same
// revision fails with ErrDuplicate.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if e.TargetID == "" {
		return fmt.Errorf("journal: empty target id")
	}
	key := j.key(e.TargetID, e.Revision)

	exists, err := j.storage.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", key, err)
	}
	if exists {
		return fmt.Errorf("%w: %s@%d", ErrDuplicate, e.TargetID, e.Revision)
	}

	sealed, err := j.codec.Seal(e.Data)
	if err != nil {
		return err
	}
	if err := j.storage.Put(ctx, key, sealed); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	j.log.Debug("journal append",
		slog.String("storage", j.storage.Name()),
		slog.String("key", key),
		slog.Int("bytes", len(sealed)))
	return nil
}

// Read returns the entries of id in revision order
func (j *Journal) Read(ctx context.Context, id string) ([]Entry, error) {
	keys, err := j.storage.List(ctx, j.dir(id))
	if err != nil {
		return nil, fmt.Errorf("failed to list journal of %s: %w", id, err)
	}

	entries := make([]Entry, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, key := range keys {
		rev, err := parseRevision(key)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			raw, err := j.storage.Get(gctx, key)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", key, err)
			}
			data, err := j.codec.Open(raw)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", key, err)
			}
			entries[i] = Entry{TargetID: id, Revision: rev, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Revision < entries[b].Revision
	})
	return entries, nil
}

func parseRevision(key string) (int64, error) {
	name := key[strings.LastIndex(key, "/")+1:]
	rev, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("journal: unexpected key %s", key)
	}
	return rev, nil
}
