package condmerge_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hkloudou/condmerge"
	"github.com/hkloudou/condmerge/internal/predicate"
)

func Example() {
	rec, _ := condmerge.NewRecord("thing-1", 7, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		[]byte(`{"a":1,"b":2}`))
	conds, _ := condmerge.ParseConditions([]byte(`{"/c":"eq(b,9)"}`), nil)

	res, err := condmerge.New().Apply(context.Background(), rec, &condmerge.Request{
		Path:         "/",
		Value:        json.RawMessage(`{"b":5,"c":7}`),
		Conditions:   conds,
		NextRevision: 8,
		Timestamp:    time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC),
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(res.Event.Value))
	fmt.Println(res.Record.Value("/b").Raw, res.Record.Value("/c").Exists())
	fmt.Println(res.Response.Headers[condmerge.HeaderETag])
	// Output:
	// {"b":5}
	// 5 false
	// "rev:8"
}

func TestDialects(t *testing.T) {
	rec, err := condmerge.NewRecord("thing-1", 1, time.Now(), []byte(`{"level":3,"color":"red"}`))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		dialect predicate.Dialect
		cond    string
	}{
		{predicate.DialectRQL, `and(gt(level,2),eq(color,"red"))`},
		{predicate.DialectExpr, `record.level > 2 && record.color == "red"`},
		{predicate.DialectCEL, `record.level > 2.0 && record.color == "red"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			engine, err := predicate.New(tt.dialect)
			if err != nil {
				t.Fatal(err)
			}
			m := condmerge.New(condmerge.WithPredicateEngine(engine))
			res, err := m.Apply(context.Background(), rec, &condmerge.Request{
				Path:         "/",
				Value:        json.RawMessage(`{"level":4}`),
				Conditions:   []condmerge.Condition{{Path: "/level", Expression: tt.cond}},
				NextRevision: 2,
				Timestamp:    time.Now(),
			})
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if string(res.Event.Value) != `{"level":4}` {
				t.Errorf("condition should hold, event value = %s", res.Event.Value)
			}
		})
	}
}
