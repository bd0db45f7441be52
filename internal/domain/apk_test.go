package domain

import "testing"

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0", "1.0.1", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.10.0", "1.9.0", 1},
		{"1.0", "1.0.0", 0},
		{"1", "1.0.1", -1},
		{"0.9.9", "1.0.0", -1},
	}

	for _, tc := range cases {
		if got := CompareVersions(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestValidAPKVersion(t *testing.T) {
	valid := []string{"1.0.0", "0.0.1", "12.34.56"}
	invalid := []string{"", "1.0", "1.0.0.0", "v1.0.0", "1.0.x", "1..0"}

	for _, v := range valid {
		if !ValidAPKVersion(v) {
			t.Errorf("expected %q to be valid", v)
		}
	}
	for _, v := range invalid {
		if ValidAPKVersion(v) {
			t.Errorf("expected %q to be invalid", v)
		}
	}
}
