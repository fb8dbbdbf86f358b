package merge

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/hkloudou/condmerge/internal/failure"
	"github.com/hkloudou/condmerge/internal/record"
)

var nextTs = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

func mustRecord(t *testing.T, body string) *record.Record {
	t.Helper()
	rec, err := record.New("t1", 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), []byte(body))
	if err != nil {
		t.Fatalf("record.New failed: %v", err)
	}
	return rec
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ptr     string
		payload string
		want    string
	}{
		{name: "root merge", body: `{"a":1,"b":2}`, ptr: "/", payload: `{"b":5,"c":7}`, want: `{"a":1,"b":5,"c":7,"id":"t1"}`},
		{name: "root merge, filtered", body: `{"a":1,"b":2}`, ptr: "/", payload: `{"b":5}`, want: `{"a":1,"b":5,"id":"t1"}`},
		{name: "sub path merge", body: `{"attributes":{"x":1}}`, ptr: "/attributes", payload: `{"y":2}`, want: `{"attributes":{"x":1,"y":2},"id":"t1"}`},
		{name: "sub path delete", body: `{"attributes":{"x":1},"k":1}`, ptr: "/attributes", payload: `null`, want: `{"k":1,"id":"t1"}`},
		{name: "sub path scalar", body: `{"attributes":{"x":1}}`, ptr: "/attributes/x", payload: `42`, want: `{"attributes":{"x":42},"id":"t1"}`},
		{name: "stamps in payload are ignored", body: `{"a":1}`, ptr: "/", payload: `{"_revision":999}`, want: `{"a":1,"id":"t1"}`},
	}

	applier := NewApplier(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustRecord(t, tt.body)
			before := rec.JSON()

			next, err := applier.Apply(rec, tt.ptr, []byte(tt.payload), 2, nextTs, nil)
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if !jsonEqual(string(next.Body), tt.want) {
				t.Errorf("Body = %s, want %s", next.Body, tt.want)
			}
			if next.Revision != 2 || !next.Modified.Equal(nextTs) {
				t.Errorf("stamps = %d %v", next.Revision, next.Modified)
			}
			if !bytes.Equal(rec.JSON(), before) {
				t.Errorf("input record modified")
			}
		})
	}
}

func TestApplyIdempotent(t *testing.T) {
	rec := mustRecord(t, `{"a":1,"b":{"c":2,"d":[1,2]},"e":"f"}`)
	applier := NewApplier(nil)
	payload := []byte(`{"b":{"c":null,"x":true},"g":1.5}`)

	first, err := applier.Apply(rec, "/", payload, 2, nextTs, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	second, err := applier.Apply(rec, "/", payload, 2, nextTs, nil)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if !bytes.Equal(first.JSON(), second.JSON()) {
		t.Errorf("not idempotent:\n%s\n%s", first.JSON(), second.JSON())
	}
}

func TestApplyInvalidResult(t *testing.T) {
	headers := map[string]string{"correlation-id": "x"}
	tests := []struct {
		name    string
		ptr     string
		payload string
	}{
		{name: "root scalar", ptr: "/", payload: `42`},
		{name: "root null", ptr: "/", payload: `null`},
		{name: "id removed", ptr: "/id", payload: `null`},
		{name: "id changed", ptr: "/", payload: `{"id":"other"}`},
		{name: "id wrong type", ptr: "/id", payload: `{"x":1}`},
		{name: "invalid payload", ptr: "/", payload: `{"a":`},
		{name: "invalid pointer", ptr: "a/b", payload: `{}`},
	}

	applier := NewApplier(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := applier.Apply(mustRecord(t, `{"a":1}`), tt.ptr, []byte(tt.payload), 2, nextTs, headers)
			if !errors.Is(err, failure.ErrInvalidPatchResult) {
				t.Fatalf("expected InvalidPatchResult, got %v", err)
			}
			var fe *failure.Error
			if errors.As(err, &fe) && fe.Headers["correlation-id"] != "x" {
				t.Errorf("headers not carried: %v", fe.Headers)
			}
		})
	}
}
