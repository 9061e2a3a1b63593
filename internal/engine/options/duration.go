package options

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// durationPattern matches <number><unit> with unit in {s,m,h,d,w}, per
// spec.md §6.
var durationPattern = regexp.MustCompile(`^(\d+)([smhdw])$`)

var unitSeconds = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 3600,
	'd': 86400,
	'w': 604800,
}

// ParseDuration parses a BOS duration string such as "7d" into a
// time.Duration. A leading value of zero is valid and has
// operator-specific meaning (e.g. disables cleanup_completed_session_ttl).
func ParseDuration(s string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("options: invalid duration string %q", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("options: invalid duration string %q: %w", s, err)
	}
	unit := unitSeconds[m[2][0]]
	return time.Duration(n*unit) * time.Second, nil
}

// FormatDuration renders a time.Duration back into the canonical BOS
// duration grammar, choosing the largest unit that divides the value
// evenly, falling back to seconds. This is the inverse needed for the
// round-trip invariant in spec.md §8.5.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs == 0 {
		return "0s"
	}
	units := []struct {
		suffix  string
		seconds int64
	}{
		{"w", 604800},
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	}
	for _, u := range units {
		if secs%u.seconds == 0 {
			return fmt.Sprintf("%d%s", secs/u.seconds, u.suffix)
		}
	}
	return fmt.Sprintf("%ds", secs)
}
