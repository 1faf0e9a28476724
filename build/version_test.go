package build

import "testing"

// TestVersionCmp checks the ordering VersionCmp imposes, including the
// "1.1.0 is newer than 1.1" length quirk.
func TestVersionCmp(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"0.1", "0.0.9", 1},
		{"0.1", "0.1", 0},
		{"0.1", "0.1.1", -1},
		{"0.1", "0.1.0", -1},
		{"0.1", "1.1", -1},
		{"2.0.0", "2.0", 1},
		{"0.1.1.0", "0.1.1", 1},
	}
	for _, tt := range tests {
		if got := VersionCmp(tt.a, tt.b); got != tt.want {
			t.Errorf("VersionCmp(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// TestIsVersion checks the valid/invalid split of version strings.
func TestIsVersion(t *testing.T) {
	tests := []struct {
		str  string
		want bool
	}{
		{"1.0", true},
		{"1", true},
		{"0.1.2.3.4.5", true},
		{Version, true},

		{"foo", false},
		{".1", false},
		{"1.", false},
		{"a.b", false},
		{"1.o", false},
		{".", false},
		{"", false},
	}
	for _, tt := range tests {
		if IsVersion(tt.str) != tt.want {
			t.Errorf("IsVersion(%q) should be %v", tt.str, tt.want)
		}
	}
}
