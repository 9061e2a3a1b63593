// Package xname canonicalizes hardware identifiers of the form
// x<C>c<S>s<B>b<N>n, stripping leading zeros from each field.
package xname

import (
	"fmt"
	"regexp"
	"strconv"
)

var pattern = regexp.MustCompile(`(?i)^x0*(\d+)c0*(\d+)s0*(\d+)b0*(\d+)n0*(\d+)$`)

// Canonicalize rewrites an xname into its canonical, zero-stripped
// form. It returns the input unchanged, and ok=false, if the input does
// not match the expected shape; callers treat that as a schema
// violation to be logged and skipped, per spec.md §7.
func Canonicalize(raw string) (canonical string, ok bool) {
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return raw, false
	}
	nums := make([]int, 5)
	for i, s := range m[1:] {
		n, err := strconv.Atoi(s)
		if err != nil {
			return raw, false
		}
		nums[i] = n
	}
	return fmt.Sprintf("x%dc%ds%db%dn%d", nums[0], nums[1], nums[2], nums[3], nums[4]), true
}

// CanonicalizeAll canonicalizes a node list into a new slice, dropping (and
// returning separately) any entries that fail to parse.
func CanonicalizeAll(nodes []string) (canonical []string, invalid []string) {
	canonical = make([]string, 0, len(nodes))
	for _, n := range nodes {
		c, ok := Canonicalize(n)
		if !ok {
			invalid = append(invalid, n)
			continue
		}
		canonical = append(canonical, c)
	}
	return canonical, invalid
}
