package options

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"10s", 10 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"4h", 4 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 2 * 7 * 24 * time.Hour, false},
		{"0s", 0, false},
		{"", 0, true},
		{"5", 0, true},
		{"5x", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseDuration(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if err == nil && got != tc.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatDurationRoundTrip(t *testing.T) {
	cases := []string{"10s", "5m", "4h", "7d", "2w", "0s", "300s"}
	for _, in := range cases {
		d, err := ParseDuration(in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", in, err)
		}
		out := FormatDuration(d)
		back, err := ParseDuration(out)
		if err != nil {
			t.Fatalf("ParseDuration(FormatDuration(%q)=%q): %v", in, out, err)
		}
		if back != d {
			t.Errorf("round trip mismatch for %q: got duration %v via %q, want %v", in, back, out, d)
		}
	}
}

func TestFormatDurationPicksLargestUnit(t *testing.T) {
	if got := FormatDuration(7 * 24 * time.Hour); got != "1w" {
		t.Errorf("FormatDuration(7d) = %q, want 1w", got)
	}
	if got := FormatDuration(90 * time.Second); got != "90s" {
		t.Errorf("FormatDuration(90s) = %q, want 90s", got)
	}
}
