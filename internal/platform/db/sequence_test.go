package db

import "testing"

func TestFormatSequence(t *testing.T) {
	cases := []struct {
		prefix string
		n      int64
		want   string
	}{
		{"PAT", 1, "PAT-00001"},
		{"APT", 42, "APT-00042"},
		{"ADM", 99999, "ADM-99999"},
		{"PRE", 123456, "PRE-123456"},
	}
	for _, c := range cases {
		if got := FormatSequence(c.prefix, c.n); got != c.want {
			t.Errorf("FormatSequence(%s, %d) = %s, want %s", c.prefix, c.n, got, c.want)
		}
	}
}
