package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hkloudou/condmerge"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	rec := writeFile(t, dir, "record.json", `{"id":"r1","_revision":4,"a":1,"b":2}`)
	req := writeFile(t, dir, "request.json", `{
		"path": "/",
		"value": {"b":5,"c":7},
		"conditions": {"/c": "eq(b,9)"},
		"headers": {"x-trace": "t1"}
	}`)

	var out bytes.Buffer
	logger := slog.New(slog.DiscardHandler)
	if err := run(context.Background(), logger, "", rec, req, true, &out, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var got struct {
		Event    condmerge.ChangeEvent `json:"event"`
		Response condmerge.Response    `json:"response"`
		Diff     []map[string]any      `json:"diff"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid output: %v\n%s", err, out.String())
	}
	if got.Event.Revision != 5 || got.Event.TargetID != "r1" {
		t.Errorf("unexpected event %+v", got.Event)
	}
	var value map[string]any
	if err := json.Unmarshal(got.Event.Value, &value); err != nil {
		t.Fatal(err)
	}
	if len(value) != 1 || value["b"] != float64(5) {
		t.Errorf("event value = %s", got.Event.Value)
	}
	if got.Response.ETag != "rev:5" || got.Response.Headers["x-trace"] != "t1" {
		t.Errorf("unexpected response %+v", got.Response)
	}
	if len(got.Diff) == 0 {
		t.Error("expected a diff")
	}
}

func TestRunInvalidExpression(t *testing.T) {
	dir := t.TempDir()
	rec := writeFile(t, dir, "record.json", `{"id":"r1","a":1}`)
	req := writeFile(t, dir, "request.json", `{"value":{"a":2},"conditions":{"/a":"malformed((("}}`)
	cfg := writeFile(t, dir, "config.yaml", "predicate:\n  dialect: rql\n")

	var out bytes.Buffer
	err := run(context.Background(), slog.New(slog.DiscardHandler), cfg, rec, req, false, &out, nil)
	if !errors.Is(err, condmerge.ErrInvalidExpression) {
		t.Errorf("expected ErrInvalidExpression, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %s", out.String())
	}
}

func TestRunWithoutStore(t *testing.T) {
	dir := t.TempDir()
	req := writeFile(t, dir, "request.json", `{"targetId":"r1","value":{}}`)
	var out bytes.Buffer
	if err := run(context.Background(), slog.New(slog.DiscardHandler), "", "", req, false, &out, nil); err == nil {
		t.Error("expected error without -record and without a store")
	}
}
