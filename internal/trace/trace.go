package trace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type contextKey string

const traceKey contextKey = "condmerge_trace"

// Trace collects timed pipeline stages for one merge
type Trace struct {
	mu     sync.Mutex
	spans  []Span
	start  time.Time
	enable bool
}

// Span is one timed stage
type Span struct {
	Name     string
	Duration time.Duration
	Details  map[string]any
}

// NewTrace creates an enabled trace
func NewTrace() *Trace {
	return &Trace{
		spans:  make([]Span, 0, 8),
		start:  time.Now(),
		enable: true,
	}
}

// WithTrace attaches a new trace to ctx
func WithTrace(ctx context.Context) context.Context {
	return context.WithValue(ctx, traceKey, NewTrace())
}

// FromContext returns the trace in ctx, or a disabled one
func FromContext(ctx context.Context) *Trace {
	if tr, ok := ctx.Value(traceKey).(*Trace); ok {
		return tr
	}
	return &Trace{enable: false}
}

// Stage starts timing name; call the returned func when the stage ends.
//
//	done := tr.Stage("merge")
//	defer done(nil)
func (t *Trace) Stage(name string) func(details map[string]any) {
	if !t.enable {
		return func(map[string]any) {}
	}
	begin := time.Now()
	return func(details map[string]any) {
		t.RecordSpan(name, time.Since(begin), details)
	}
}

// RecordSpan records a span with duration
func (t *Trace) RecordSpan(name string, duration time.Duration, details map[string]any) {
	if !t.enable {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = append(t.spans, Span{Name: name, Duration: duration, Details: details})
}

// Total returns elapsed time since the trace started
func (t *Trace) Total() time.Duration {
	return time.Since(t.start)
}

// Spans returns a copy of the recorded spans
func (t *Trace) Spans() []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	spans := make([]Span, len(t.spans))
	copy(spans, t.spans)
	return spans
}

// Dump formats the trace for logs
func (t *Trace) Dump() string {
	spans := t.Spans()
	if !t.enable || len(spans) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Trace: Total %v ===\n", t.Total())
	for i, span := range spans {
		fmt.Fprintf(&sb, "[%d] %s: %v", i+1, span.Name, span.Duration)
		if len(span.Details) > 0 {
			fmt.Fprintf(&sb, " %+v", span.Details)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
