package xname

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"x0001c0s0b0n0", "x1c0s0b0n0", true},
		{"x1c0s0b0n0", "x1c0s0b0n0", true},
		{"X3000C0S17B0N0", "x3000c0s17b0n0", true},
		{"not-an-xname", "not-an-xname", false},
		{"x1c0s0b0", "x1c0s0b0", false},
	}
	for _, tc := range cases {
		got, ok := Canonicalize(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("Canonicalize(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCanonicalizeAll(t *testing.T) {
	canonical, invalid := CanonicalizeAll([]string{"x01c0s0b0n0", "garbage", "x2c0s0b0n0"})
	if len(canonical) != 2 || len(invalid) != 1 {
		t.Fatalf("got canonical=%v invalid=%v", canonical, invalid)
	}
	if canonical[0] != "x1c0s0b0n0" || canonical[1] != "x2c0s0b0n0" {
		t.Errorf("unexpected canonical output: %v", canonical)
	}
	if invalid[0] != "garbage" {
		t.Errorf("unexpected invalid output: %v", invalid)
	}
}
