package condmerge

import (
	"log/slog"

	"github.com/hkloudou/condmerge/internal/sizeguard"
)

// DefaultMaxRecordBytes limits the serialized size of a merged record
const DefaultMaxRecordBytes = sizeguard.DefaultMaxBytes

// Option configures a Merger
type Option struct {
	Engine         PredicateEngine
	Validator      SchemaValidator
	ETags          EntityTagCalculator
	MaxRecordBytes int64
	Logger         *slog.Logger
}

// WithPredicateEngine sets the engine for patch conditions (default RQL)
func WithPredicateEngine(engine PredicateEngine) func(*Option) {
	return func(opt *Option) {
		opt.Engine = engine
	}
}

// WithSchemaValidator interposes validator between merge and size check
func WithSchemaValidator(validator SchemaValidator) func(*Option) {
	return func(opt *Option) {
		opt.Validator = validator
	}
}

// WithEntityTags replaces the default entity tag calculator
func WithEntityTags(calc EntityTagCalculator) func(*Option) {
	return func(opt *Option) {
		opt.ETags = calc
	}
}

// WithMaxRecordBytes sets the record size limit; a negative limit disables it
func WithMaxRecordBytes(limit int64) func(*Option) {
	return func(opt *Option) {
		opt.MaxRecordBytes = limit
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) func(*Option) {
	return func(opt *Option) {
		opt.Logger = logger
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
