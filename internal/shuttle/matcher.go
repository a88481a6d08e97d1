package shuttle

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher matches file names against a set of wildcard patterns. Patterns
// support "*" (any run of characters) and "?" (any single character); all
// other characters match literally. Matching is case-insensitive.
//
// The patterns are compiled once into a single anchored alternation, so a
// Matcher can be applied to thousands of names without recompilation.
type Matcher struct {
	re *regexp.Regexp
}

// CompilePatterns compiles wildcard patterns into a Matcher.
// At least one non-empty pattern is required.
func CompilePatterns(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no patterns given: %w", ErrInvalidArgument)
	}

	alts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("empty pattern: %w", ErrInvalidArgument)
		}
		alts = append(alts, wildcardToRegexp(p))
	}

	expr := "(?i)^(?:" + strings.Join(alts, "|") + ")$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling patterns %v: %w", patterns, err)
	}

	return &Matcher{re: re}, nil
}

// IsMatch reports whether name matches any of the compiled patterns.
func (m *Matcher) IsMatch(name string) bool {
	return m.re.MatchString(name)
}

// wildcardToRegexp translates a single wildcard pattern into an unanchored
// regexp fragment, escaping everything that is not a wildcard.
func wildcardToRegexp(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return b.String()
}

// containsWildcard reports whether a path segment carries wildcard
// characters.
func containsWildcard(segment string) bool {
	return strings.ContainsAny(segment, "*?")
}
