package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/hkloudou/condmerge/internal/record"
)

func rec(t *testing.T, rev int64, body string) *record.Record {
	t.Helper()
	r, err := record.New("t1", rev, time.Unix(0, 0), []byte(body))
	if err != nil {
		t.Fatalf("record.New failed: %v", err)
	}
	return r
}

func TestRulesCheck(t *testing.T) {
	rules, err := NewRules([]Rule{
		{Name: "level-range", Expr: `!has(next.level) || (next.level >= 0.0 && next.level <= 10.0)`},
		{Name: "monotonic", Expr: `previous == null || next._revision > previous._revision`},
		{Name: "no-root", Expr: `path != "/"`},
	})
	if err != nil {
		t.Fatalf("NewRules failed: %v", err)
	}
	if rules.Len() != 3 {
		t.Fatalf("Len = %d", rules.Len())
	}

	tests := []struct {
		name     string
		previous *record.Record
		next     *record.Record
		path     string
		wantRule string
	}{
		{name: "accepted", previous: rec(t, 1, `{"level":1}`), next: rec(t, 2, `{"level":5}`), path: "/level"},
		{name: "no previous", next: rec(t, 1, `{}`), path: "/level"},
		{name: "out of range", previous: rec(t, 1, `{}`), next: rec(t, 2, `{"level":11}`), path: "/level", wantRule: "level-range"},
		{name: "revision regressed", previous: rec(t, 3, `{}`), next: rec(t, 2, `{}`), path: "/level", wantRule: "monotonic"},
		{name: "root path", previous: rec(t, 1, `{}`), next: rec(t, 2, `{}`), path: "/", wantRule: "no-root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rules.Check(tt.previous, tt.next, tt.path)
			if tt.wantRule == "" {
				if err != nil {
					t.Fatalf("Check failed: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantRule) {
				t.Errorf("err = %v, want rule %q", err, tt.wantRule)
			}
		})
	}
}

func TestNewRulesErrors(t *testing.T) {
	for _, r := range []Rule{
		{Name: "syntax", Expr: `next.(`},
		{Name: "not bool", Expr: `path + "x"`},
	} {
		if _, err := NewRules([]Rule{r}); err == nil || !strings.Contains(err.Error(), r.Name) {
			t.Errorf("NewRules(%s) err = %v", r.Name, err)
		}
	}
}

func TestEmptyRules(t *testing.T) {
	rules, err := NewRules(nil)
	if err != nil {
		t.Fatalf("NewRules failed: %v", err)
	}
	if err := rules.Check(nil, rec(t, 1, `{}`), "/"); err != nil {
		t.Errorf("Check = %v", err)
	}
}
