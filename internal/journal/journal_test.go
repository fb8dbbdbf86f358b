package journal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hkloudou/condmerge/internal/storage"
)

func TestAppendRead(t *testing.T) {
	for _, key := range []string{"", "secret"} {
		t.Run("key="+key, func(t *testing.T) {
			ctx := context.Background()
			j := New(storage.NewMemoryStorage("test"), WithAESKey(key))

			for _, rev := range []int64{3, 1, 2} {
				e := Entry{TargetID: "user/1", Revision: rev, Data: []byte(`{"rev":` + string(rune('0'+rev)) + `}`)}
				if err := j.Append(ctx, e); err != nil {
					t.Fatalf("Append(%d) failed: %v", rev, err)
				}
			}
			// a different record must not show up
			if err := j.Append(ctx, Entry{TargetID: "user/2", Revision: 1, Data: []byte(`{}`)}); err != nil {
				t.Fatalf("Append failed: %v", err)
			}

			entries, err := j.Read(ctx, "user/1")
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if len(entries) != 3 {
				t.Fatalf("got %d entries, want 3", len(entries))
			}
			for i, e := range entries {
				want := int64(i + 1)
				if e.Revision != want {
					t.Errorf("entry %d revision = %d, want %d", i, e.Revision, want)
				}
				if e.TargetID != "user/1" {
					t.Errorf("entry %d target = %q", i, e.TargetID)
				}
				if string(e.Data) != `{"rev":`+string(rune('0'+want))+`}` {
					t.Errorf("entry %d data = %s", i, e.Data)
				}
			}
		})
	}
}

func TestAppendDuplicate(t *testing.T) {
	ctx := context.Background()
	j := New(storage.NewMemoryStorage("test"))
	e := Entry{TargetID: "a", Revision: 1, Data: []byte(`{}`)}
	if err := j.Append(ctx, e); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := j.Append(ctx, e); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestAppendEmptyTarget(t *testing.T) {
	j := New(storage.NewMemoryStorage("test"))
	if err := j.Append(context.Background(), Entry{Revision: 1}); err == nil {
		t.Error("expected error for empty target id")
	}
}

func TestKeyLayout(t *testing.T) {
	j := New(storage.NewMemoryStorage("test"), WithPrefix("/lake/"))
	key := j.key("doc-1", 42)
	if !strings.HasPrefix(key, "lake/") {
		t.Errorf("key %q missing prefix", key)
	}
	if !strings.HasSuffix(key, "/(doc-1/events/00000000000000000042.json") {
		t.Errorf("unexpected key %q", key)
	}
	rev, err := parseRevision(key)
	if err != nil || rev != 42 {
		t.Errorf("parseRevision(%q) = %d, %v", key, rev, err)
	}
}

func TestReadEmpty(t *testing.T) {
	j := New(storage.NewMemoryStorage("test"))
	entries, err := j.Read(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
