package encode

import "testing"

func TestEncodeID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"", ""},
		{"user-1", "(user-1"},
		{"a.b_c", "(a.b_c"},
		{"a/b", "YS9i"},
		{"a:b", "YTpi"},
		{"日本", "5pel5pys"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := EncodeID(tt.id)
			if got != tt.want {
				t.Errorf("EncodeID(%q) = %q, want %q", tt.id, got, tt.want)
			}
			back, err := DecodeID(got)
			if err != nil {
				t.Fatalf("DecodeID(%q) failed: %v", got, err)
			}
			if back != tt.id {
				t.Errorf("DecodeID(%q) = %q, want %q", got, back, tt.id)
			}
		})
	}
}

func TestDecodeIDInvalid(t *testing.T) {
	if _, err := DecodeID("!!!"); err == nil {
		t.Error("expected error for invalid segment")
	}
}
