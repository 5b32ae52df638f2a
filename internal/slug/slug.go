package slug

import (
	"fmt"
	"regexp"
	"strings"
)

const maxLen = 60

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
	hyphenRuns = regexp.MustCompile(`-+`)
)

// Generate builds a URL slug from a title and optional artist. The output is
// deterministic: same inputs, same slug.
func Generate(title, artist string) string {
	s := title
	if artist != "" {
		s = title + " " + artist
	}
	s = strings.ToLower(s)
	s = disallowed.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "-")
	}
	return s
}

// GenerateUnique probes existing and appends -1, -2, ... until the slug is
// unused.
func GenerateUnique(title, artist string, existing []string) string {
	base := Generate(title, artist)
	taken := make(map[string]bool, len(existing))
	for _, s := range existing {
		taken[s] = true
	}
	if !taken[base] {
		return base
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !taken[candidate] {
			return candidate
		}
	}
}
