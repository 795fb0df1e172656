package db

import "testing"

func TestMaskPassword(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"", "<empty>"},
		{"postgres://console:s3cret@db:5432/journal", "postgres://console:xxxxx@db:5432/journal"},
		{"postgres://db:5432/journal", "postgres://db:5432/journal"},
	}
	for _, tc := range cases {
		if got := MaskPassword(tc.url); got != tc.want {
			t.Errorf("MaskPassword(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}
