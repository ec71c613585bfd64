package version

import "testing"

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2.9.3", "2.9.2", 1},
		{"v2.9.3", "2.9.3", 0},
		{"1.0.0", "1.0.10", -1},
		{"2.10", "2.9.9", 1},
		{"release-3", "release-3", 0},
		{"1.2.3-beta", "1.2.3", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsNewer(t *testing.T) {
	if !IsNewer("1.0.0", "dev") {
		t.Error("dev build should always be outdated")
	}
	if IsNewer("1.0.0", "1.0.0") {
		t.Error("equal versions should not be newer")
	}
	if !IsNewer("v1.1.0", "1.0.9") {
		t.Error("v1.1.0 should be newer than 1.0.9")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("v2.9.3"); got != "2.9.3" {
		t.Errorf("Normalize(v2.9.3) = %q, want 2.9.3", got)
	}
	if got := Normalize("v"); got != "v" {
		t.Errorf("Normalize(v) = %q, want v", got)
	}
}
