package core

import "testing"

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"1", "1"},
		{"123", "123"},
		{"1234", "1,234"},
		{"1234567", "1,234,567"},
		{"1,234", "1,234"},   // already grouped
		{"$1,234.56", "123,456"}, // digits only, grouping recomputed
		{"0012", "12"},
		{"0", "0"},
		{"000", "0"},
		{"", ""},
		{"abc", ""},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.in); got != tc.out {
			t.Errorf("FormatAmount(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
