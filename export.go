package condmerge

import (
	"context"
	"time"

	"github.com/hkloudou/condmerge/internal/etag"
	"github.com/hkloudou/condmerge/internal/failure"
	"github.com/hkloudou/condmerge/internal/merge"
	"github.com/hkloudou/condmerge/internal/predicate"
	"github.com/hkloudou/condmerge/internal/record"
	"github.com/hkloudou/condmerge/internal/trace"
)

// Record is an immutable versioned JSON document (re-exported)
type Record = record.Record

// Condition gates one part of a merge payload (re-exported)
type Condition = merge.Condition

// Error is a terminal pipeline failure carrying the request headers (re-exported)
type Error = failure.Error

// ErrorKind identifies the failed check (re-exported)
type ErrorKind = failure.Kind

// PredicateEngine evaluates patch condition expressions (re-exported)
type PredicateEngine = predicate.Engine

// EntityTagCalculator computes entity tags for a record at a path (re-exported)
type EntityTagCalculator = etag.Calculator

// EntityTagCalculatorFunc adapts a function to EntityTagCalculator
type EntityTagCalculatorFunc = etag.CalculatorFunc

// Error kinds (re-exported)
const (
	KindInvalidExpression      = failure.KindInvalidExpression
	KindInvalidPatchResult     = failure.KindInvalidPatchResult
	KindSizeLimitExceeded      = failure.KindSizeLimitExceeded
	KindSchemaValidationFailed = failure.KindSchemaValidationFailed
)

// Sentinels matched by errors.Is on any *Error of the same kind
var (
	ErrInvalidExpression      = failure.ErrInvalidExpression
	ErrInvalidPatchResult     = failure.ErrInvalidPatchResult
	ErrSizeLimitExceeded      = failure.ErrSizeLimitExceeded
	ErrSchemaValidationFailed = failure.ErrSchemaValidationFailed
)

// NewRecord builds a record from a JSON object body
func NewRecord(id string, revision int64, modified time.Time, body []byte) (*Record, error) {
	return record.New(id, revision, modified, body)
}

// ParseRecord reads a record's full JSON representation
func ParseRecord(doc []byte) (*Record, error) {
	return record.Parse(doc)
}

// ParseConditions reads a JSON object of pointer -> expression in key order
func ParseConditions(raw []byte, headers Headers) ([]Condition, error) {
	return merge.ParseConditions(raw, headers)
}

// ErrorKindOf returns the pipeline error kind of err
func ErrorKindOf(err error) ErrorKind {
	return failure.KindOf(err)
}

// WithTrace attaches a trace collecting per-stage timings to ctx
func WithTrace(ctx context.Context) context.Context {
	return trace.WithTrace(ctx)
}

// TraceDump formats the trace attached to ctx, or returns "" if there is none
func TraceDump(ctx context.Context) string {
	return trace.FromContext(ctx).Dump()
}
