package cache

import (
	"regexp"
	"strings"
)

// compileGlob translates a glob pattern into an anchored regular
// expression. Only '*' and '?' are wildcards; every other character,
// regex metacharacters included, matches literally. The (?s) flag
// keeps '.' matching newlines so keys embedding arbitrary text behave.
func compileGlob(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return regexp.MustCompile(b.String())
}
