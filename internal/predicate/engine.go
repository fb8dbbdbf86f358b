package predicate

import (
	"encoding/json"
	"fmt"
	"time"
)

// Engine evaluates a boolean expression against a record document.
// Implementations must not retain state that changes results between calls.
type Engine interface {
	Evaluate(doc []byte, expression string, headers map[string]string) (bool, error)
}

// EngineFunc adapts a function to Engine
type EngineFunc func(doc []byte, expression string, headers map[string]string) (bool, error)

func (f EngineFunc) Evaluate(doc []byte, expression string, headers map[string]string) (bool, error) {
	return f(doc, expression, headers)
}

// Dialect names an expression language
type Dialect string

const (
	DialectRQL  Dialect = "rql"
	DialectExpr Dialect = "expr"
	DialectCEL  Dialect = "cel"
)

// Options configure the built-in engines
type Options struct {
	// Now resolves the time:now placeholder (and time_now in expr/cel). Defaults to time.Now.
	Now func() time.Time
	// CacheSize bounds the compiled program cache of expr and cel
	CacheSize int
}

type Option func(*Options)

// WithClock sets the clock used for time placeholders
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// WithCacheSize bounds the compiled program cache
func WithCacheSize(n int) Option {
	return func(o *Options) {
		o.CacheSize = n
	}
}

func newOptions(opts []Option) Options {
	o := Options{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates an engine for the given dialect. The empty dialect is RQL.
func New(dialect Dialect, opts ...Option) (Engine, error) {
	switch dialect {
	case DialectRQL, "":
		return NewRQL(opts...), nil
	case DialectExpr:
		return NewExpr(opts...), nil
	case DialectCEL:
		return NewCEL(opts...)
	default:
		return nil, fmt.Errorf("unknown predicate dialect: %s", dialect)
	}
}

// decodeDoc turns the record document into plain Go values for expr and cel.
func decodeDoc(doc []byte) (map[string]any, error) {
	var v map[string]any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return v, nil
}
