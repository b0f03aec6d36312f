package chanrelay

import "testing"

func TestSeqGT(t *testing.T) {
	cases := []struct {
		a, b     seq
		expected bool
	}{
		{1, 0, true},
		{0, 1, false},
		{0, 0, false},
		{10, 10, false},
		// wraparound: a just past the 32-bit boundary is still "newer"
		// than b just before it.
		{0, 0xFFFFFFFF, true},
		{0xFFFFFFFF, 0, false},
		{0x80000000, 0, false}, // exactly half the space away: treated as not-newer
	}
	for _, c := range cases {
		if got := seqGT(c.a, c.b); got != c.expected {
			t.Errorf("seqGT(%d, %d) = %v, want %v", c.a, c.b, got, c.expected)
		}
	}
}
