package exitnode

import (
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"
)

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// UniqueValues returns the distinct values of field across nodes,
// sorted ascending. Comparison is case-sensitive.
func UniqueValues(nodes []ExitNode, field Field) []string {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		v := field.Value(n)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// MatchValue finds the single value containing pattern, ignoring case.
// It fails with *NoMatchError or *AmbiguousMatchError otherwise.
func MatchValue(values []string, field Field, pattern string) (string, error) {
	needle := strings.ToLower(pattern)

	var matches []string
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), needle) {
			matches = append(matches, v)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NoMatchError{Field: field, Pattern: pattern, Available: values}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousMatchError{Field: field, Pattern: pattern, Matches: matches}
	}
}

// FilterByValue returns the nodes whose field equals value exactly.
func FilterByValue(nodes []ExitNode, field Field, value string) []ExitNode {
	var out []ExitNode
	for _, n := range nodes {
		if field.Value(n) == value {
			out = append(out, n)
		}
	}
	return out
}

// PickNode chooses uniformly at random among the nodes whose field equals
// value. Spreading load across equal candidates is intended, so callers
// must not expect the first match. ok is false when nothing matches.
func PickNode(nodes []ExitNode, field Field, value string, rnd *rand.Rand) (node ExitNode, ok bool) {
	candidates := FilterByValue(nodes, field, value)
	if len(candidates) == 0 {
		return ExitNode{}, false
	}
	if rnd == nil {
		return candidates[rand.IntN(len(candidates))], true
	}
	return candidates[rnd.IntN(len(candidates))], true
}

// ValidateIP checks that ip looks like a dotted quad. Octet ranges are
// not checked.
func ValidateIP(ip string) error {
	if !ipv4Pattern.MatchString(ip) {
		return &InvalidIPError{IP: ip}
	}
	return nil
}
