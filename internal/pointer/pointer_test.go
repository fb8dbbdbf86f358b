package pointer

import (
	"testing"
)

func TestToGjsonPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "root path", path: "/", expected: ""},
		{name: "empty path", path: "", expected: ""},
		{name: "single segment", path: "/user", expected: "user"},
		{name: "multiple segments", path: "/user/profile", expected: "user.profile"},
		{name: "segment with dot", path: "/user.info", expected: `user\.info`},
		{name: "multiple segments with dots", path: "/user.info/profile.data", expected: `user\.info.profile\.data`},
		{name: "escaped slash", path: "/a~1b", expected: `a\/b`},
		{name: "escaped tilde", path: "/a~0b", expected: `a\~b`},
		{name: "underscore and dollar", path: "/_private/$config", expected: "_private.$config"},
		{name: "wildcard escaped", path: "/a*b", expected: `a\*b`},
		{name: "with numbers", path: "/user123/456", expected: "user123.456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToGjsonPath(tt.path)
			if result != tt.expected {
				t.Errorf("ToGjsonPath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestToSjsonPathNumericSegment(t *testing.T) {
	if got := ToSjsonPath("/features/0/value"); got != "features.:0.value" {
		t.Errorf("ToSjsonPath = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "empty is root", path: "", wantErr: false},
		{name: "slash is root", path: "/", wantErr: false},
		{name: "simple", path: "/attributes", wantErr: false},
		{name: "nested", path: "/features/lamp/properties/on", wantErr: false},
		{name: "hyphen and digits", path: "/feature-1/2", wantErr: false},
		{name: "no leading slash before Normalize", path: "attributes", wantErr: true},
		{name: "trailing slash", path: "/attributes/", wantErr: true},
		{name: "empty segment", path: "/a//b", wantErr: true},
		{name: "control character", path: "/a\nb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"", ""},
		{"/", "/"},
		{"c", "/c"},
		{"attributes/foo", "/attributes/foo"},
		{"/attributes/foo", "/attributes/foo"},
	}
	for _, tt := range tests {
		got := Normalize(tt.path)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.path, got, tt.want)
		}
		if err := Validate(got); err != nil {
			t.Errorf("Validate(Normalize(%q)) failed: %v", tt.path, err)
		}
	}
}

func TestGetObjectMembersOnly(t *testing.T) {
	doc := []byte(`{"arr":[1,2],"obj":{"0":"zero"},"s":"text"}`)
	tests := []struct {
		path   string
		exists bool
	}{
		{"/arr", true},
		{"/arr/0", false},
		{"/obj/0", true},
		{"/s/0", false},
		{"/missing/0", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Exists(doc, tt.path); got != tt.exists {
				t.Errorf("Exists(%q) = %v, want %v", tt.path, got, tt.exists)
			}
		})
	}

	out, err := Delete(doc, "/arr/0")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if string(out) != string(doc) {
		t.Errorf("Delete below an array changed the document: %s", out)
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		base, rel, want string
	}{
		{"/", "/a", "/a"},
		{"", "", "/"},
		{"/attributes", "/a/b", "/attributes/a/b"},
		{"/attributes", "/", "/attributes"},
	}
	for _, tt := range tests {
		if got := Join(tt.base, tt.rel); got != tt.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tt.base, tt.rel, got, tt.want)
		}
	}
}

func TestDeleteDoesNotTouchInput(t *testing.T) {
	doc := []byte(`{"a":{"b":1,"c":2},"d":3}`)
	orig := string(doc)

	out, err := Delete(doc, "/a/b")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if string(doc) != orig {
		t.Errorf("input modified: %s", doc)
	}
	if Exists(out, "/a/b") {
		t.Errorf("value still present: %s", out)
	}
	if !Exists(out, "/a/c") || !Exists(out, "/d") {
		t.Errorf("siblings lost: %s", out)
	}
}

func TestDeleteAbsent(t *testing.T) {
	doc := []byte(`{"a":1}`)
	out, err := Delete(doc, "/x/y")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if string(out) != string(doc) {
		t.Errorf("got %s, want %s", out, doc)
	}
}

func TestExistsNull(t *testing.T) {
	if !Exists([]byte(`{"a":null}`), "/a") {
		t.Error("explicit null should count as present")
	}
}

func TestWrap(t *testing.T) {
	out, err := Wrap("/a/b", []byte(`{"c":1}`))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if got := Get(out, "/a/b/c").Int(); got != 1 {
		t.Errorf("wrapped value = %d, doc %s", got, out)
	}

	root, err := Wrap("/", []byte(`42`))
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	if string(root) != "42" {
		t.Errorf("root wrap = %s", root)
	}
}
