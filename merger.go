package condmerge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hkloudou/condmerge/internal/etag"
	"github.com/hkloudou/condmerge/internal/failure"
	"github.com/hkloudou/condmerge/internal/merge"
	"github.com/hkloudou/condmerge/internal/predicate"
	"github.com/hkloudou/condmerge/internal/sizeguard"
	"github.com/hkloudou/condmerge/internal/trace"
)

// ErrNoRecord is returned when there is no current record to merge into
var ErrNoRecord = errors.New("condmerge: no current record")

// Merger runs the conditional merge pipeline:
// filter -> merge -> validate -> size check -> build.
// It holds no mutable state and is safe for concurrent use on different records.
type Merger struct {
	filter    *merge.PatchFilter
	applier   *merge.Applier
	guard     sizeguard.Guard
	validator SchemaValidator
	etags     EntityTagCalculator
	log       *slog.Logger
}

// New creates a Merger. Without options it evaluates RQL conditions, tags
// entities by revision/content hash and limits records to DefaultMaxRecordBytes.
func New(opts ...func(*Option)) *Merger {
	option := &Option{MaxRecordBytes: DefaultMaxRecordBytes}
	for _, opt := range opts {
		opt(option)
	}
	if option.Engine == nil {
		option.Engine = predicate.NewRQL()
	}
	if option.ETags == nil {
		option.ETags = etag.Default{}
	}
	if option.Logger == nil {
		option.Logger = discardLogger()
	}

	return &Merger{
		filter:    merge.NewPatchFilter(merge.NewConditionEvaluator(option.Engine)),
		applier:   merge.NewApplier(merge.NewRFC7396Merger()),
		guard:     sizeguard.New(option.MaxRecordBytes),
		validator: option.Validator,
		etags:     option.ETags,
		log:       option.Logger,
	}
}

// Apply merges req into rec. rec is never modified. On failure no event or
// response is produced; pipeline failures are *Error values carrying
// req.Headers, and cancellation returns the context error.
func (m *Merger) Apply(ctx context.Context, rec *Record, req *Request) (*Result, error) {
	if rec == nil {
		return nil, ErrNoRecord
	}
	headers := map[string]string(req.Headers)
	if req.TargetID != "" && req.TargetID != rec.ID {
		return nil, failure.Newf(failure.KindInvalidPatchResult, headers,
			"request targets %q but the current record is %q", req.TargetID, rec.ID)
	}
	if len(req.Value) == 0 {
		return nil, failure.Newf(failure.KindInvalidPatchResult, headers, "merge payload is missing")
	}
	tr := trace.FromContext(ctx)

	done := tr.Stage("filter")
	filtered, err := m.filter.Filter(rec.JSON(), req.Value, req.Conditions, headers)
	done(map[string]any{"conditions": len(req.Conditions)})
	if err != nil {
		return nil, err
	}

	done = tr.Stage("merge")
	next, err := m.applier.Apply(rec, req.path(), filtered, req.NextRevision, req.Timestamp, headers)
	done(nil)
	if err != nil {
		return nil, err
	}
	m.log.Debug("result of JSON merge", "id", rec.ID, "path", req.path(), "record", next)

	if m.validator != nil {
		done = tr.Stage("validate")
		err = m.validate(ctx, rec, next, req)
		done(nil)
		if err != nil {
			return nil, err
		}
	}

	done = tr.Stage("size")
	err = m.guard.Check(next, headers)
	done(map[string]any{"limit": m.guard.Limit})
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done = tr.Stage("build")
	res := m.build(rec, next, filtered, req)
	done(nil)
	return res, nil
}

// validate runs the schema validator in its own goroutine and waits for it or
// for ctx, whichever comes first.
func (m *Merger) validate(ctx context.Context, previous, candidate *Record, req *Request) error {
	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("schema validator panicked: %v", r)
			}
		}()
		result <- m.validator.Validate(ctx, previous, candidate, req)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-result:
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if failure.KindOf(err) == failure.KindSchemaValidationFailed {
			return err
		}
		return failure.New(failure.KindSchemaValidationFailed, err.Error(), req.Headers, err)
	}
}
