package cache

import "testing"

func TestCompileGlob(t *testing.T) {
	cases := []struct {
		pattern string
		input   string
		match   bool
	}{
		{"issues:*", "issues:abc", true},
		{"issues:*", "issues:", true},
		{"issues:*", "issues", false},
		{"issues:*", "other:issues:abc", false},
		{"*", "anything at all", true},
		{"*", "", true},
		{"issue:?", "issue:a", true},
		{"issue:?", "issue:ab", false},
		{"issue:?", "issue:", false},
		{"a*b", "ab", true},
		{"a*b", "axxxb", true},
		{"a*b", "axxxbc", false},
		// Regex metacharacters in the pattern are literal.
		{"issue:[ABC-1]", "issue:[ABC-1]", true},
		{"issue:[ABC-1]", "issue:A", false},
		{"a.b", "a.b", true},
		{"a.b", "axb", false},
		{"q+(x)", "q+(x)", true},
		// Keys containing newlines still match '*' and '?'.
		{"note:*", "note:line1\nline2", true},
		{"exact", "exact", true},
		{"exact", "exactly", false},
	}
	for _, tc := range cases {
		re := compileGlob(tc.pattern)
		if got := re.MatchString(tc.input); got != tc.match {
			t.Errorf("pattern %q against %q: got %v, want %v", tc.pattern, tc.input, got, tc.match)
		}
	}
}
